package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/badgehub/badgehub-api/internal/config"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
)

const TokenDuration = 24 * time.Hour

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:  db,
		cfg: cfg,
	}
}

// AuthInput carries the cookie header into huma operations that authorize
// through Authorize.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie" required:"false"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	url := h.oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(context.Background(), token)

	resp, err := client.Get(DiscordUserAPI)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&discordUser); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	var issuer models.Issuer
	if err := h.db.FirstOrInit(&issuer, models.Issuer{DiscordID: discordUser.ID}).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	issuer.Username = discordUser.Username
	issuer.Email = discordUser.Email
	issuer.Avatar = discordUser.Avatar

	if err := h.db.Save(&issuer).Error; err != nil {
		http.Error(w, "Failed to save issuer", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(issuer.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    jwtToken,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
	})

	w.Write([]byte(fmt.Sprintf("Welcome %s! You are logged in.", issuer.Username)))
}

func (h *AuthHandler) GenerateToken(issuerID uint) (string, error) {
	claims := jwt.MapClaims{
		"issuer_id": issuerID,
		"exp":       time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *AuthHandler) parseToken(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("invalid token claims")
	}
	issuerIDFloat, ok := claims["issuer_id"].(float64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("invalid token claims")
	}
	expiry := time.Time{}
	if exp, ok := claims["exp"].(float64); ok {
		expiry = time.Unix(int64(exp), 0)
	}
	return uint(issuerIDFloat), expiry, nil
}

// Authorize resolves the issuer ID for a huma operation, preferring the
// context value set by AuthMiddleware and falling back to parsing the raw
// cookie header.
func (h *AuthHandler) Authorize(ctx context.Context, cookieHeader string) (uint, error) {
	if issuerID, ok := ctx.Value(IssuerIDKey).(uint); ok {
		return issuerID, nil
	}
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name != "auth_token" {
			continue
		}
		issuerID, _, err := h.parseToken(value)
		if err != nil {
			return 0, huma.Error401Unauthorized("Invalid token")
		}
		return issuerID, nil
	}
	return 0, huma.Error401Unauthorized("No token found")
}

// RequireAdmin authorizes and additionally checks the issuer's admin flag.
func (h *AuthHandler) RequireAdmin(ctx context.Context, cookieHeader string) (uint, error) {
	issuerID, err := h.Authorize(ctx, cookieHeader)
	if err != nil {
		return 0, err
	}
	var issuer models.Issuer
	if err := h.db.First(&issuer, issuerID).Error; err != nil {
		return 0, huma.Error404NotFound("Issuer not found")
	}
	if !issuer.Admin {
		return 0, huma.Error403Forbidden("Access denied: admin only")
	}
	return issuerID, nil
}

type MeOutput struct {
	Body struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
		Admin    bool   `json:"admin"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	issuerID, err := h.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	var issuer models.Issuer
	if err := h.db.First(&issuer, issuerID).Error; err != nil {
		return nil, huma.Error404NotFound("Issuer not found")
	}

	res := &MeOutput{}
	res.Body.ID = issuer.ID
	res.Body.Username = issuer.Username
	res.Body.Email = issuer.Email
	res.Body.Avatar = issuer.Avatar
	res.Body.Admin = issuer.Admin
	return res, nil
}
