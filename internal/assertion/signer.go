package assertion

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Signer produces signed Open Badges assertions. Recipient identities are
// salted sha256 hashes so assertions can be published without exposing the
// recipient email.
type Signer struct {
	secret  []byte
	salt    string
	baseURL string
}

func NewSigner(secret, salt, baseURL string) *Signer {
	return &Signer{secret: []byte(secret), salt: salt, baseURL: baseURL}
}

// HashIdentity returns the hashed-recipient identity in the
// "sha256$<hex>" format the Open Badges verifier expects.
func (s *Signer) HashIdentity(email string) string {
	sum := sha256.Sum256([]byte(email + s.salt))
	return "sha256$" + hex.EncodeToString(sum[:])
}

func (s *Signer) BadgeURL(shortname string) string {
	return fmt.Sprintf("%s/badge/%s.json", s.baseURL, shortname)
}

func (s *Signer) AssertionURL(hash string) string {
	return fmt.Sprintf("%s/assertions/%s", s.baseURL, hash)
}

// Sign builds and signs the assertion for one award and returns the
// serialized JWS plus its lookup hash (sha256 of the signed string).
func (s *Signer) Sign(badge *models.Badge, email string, issuedOn time.Time) (signed, hash string, err error) {
	uidBytes := make([]byte, 8)
	if _, err := rand.Read(uidBytes); err != nil {
		return "", "", err
	}

	claims := jwt.MapClaims{
		"uid": badge.Shortname + "." + hex.EncodeToString(uidBytes),
		"recipient": map[string]any{
			"identity": s.HashIdentity(email),
			"type":     "email",
			"hashed":   true,
			"salt":     s.salt,
		},
		"badge":    s.BadgeURL(badge.Shortname),
		"issuedOn": issuedOn.Unix(),
		"verify": map[string]any{
			"type": "signed",
			"url":  s.baseURL + "/pubkey",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err = token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	sum := sha256.Sum256([]byte(signed))
	return signed, hex.EncodeToString(sum[:]), nil
}

// Parse verifies a signed assertion and returns its claims.
func (s *Signer) Parse(signed string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid assertion token")
	}
	return claims, nil
}
