package claims

import (
	"context"
	"errors"

	"github.com/badgehub/badgehub-api/internal/assertion"
	"github.com/badgehub/badgehub-api/internal/award"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/badgehub/badgehub-api/internal/notifier"
	"gorm.io/gorm"
)

// Service orchestrates claim-code redemption and reservation on top of the
// award engine.
type Service struct {
	db       *gorm.DB
	signer   *assertion.Signer
	notifier notifier.Notifier
	generate models.CodeGenerator
}

func NewService(db *gorm.DB, signer *assertion.Signer, n notifier.Notifier) *Service {
	return &Service{db: db, signer: signer, notifier: n, generate: GeneratePhrases}
}

// WithGenerator swaps the claim-code generator. Used by tests and by batch
// tooling that wants alphanumeric codes instead of phrases.
func (s *Service) WithGenerator(gen models.CodeGenerator) *Service {
	s.generate = gen
	return s
}

type RedeemResult struct {
	Instance     *models.BadgeInstance
	AutoAwarded  []*models.BadgeInstance
	AssertionURL string
}

// Redeem turns a code + email pair into an assertion. Unknown codes, codes
// claimed by someone else, and recipients who already hold the badge come
// back as the package's sentinel errors; in the already-awarded case the
// code is left untouched so it stays available to others. Redemption and
// award commit in one transaction: a code is never consumed without its
// instance persisting, nor the reverse.
func (s *Service) Redeem(ctx context.Context, code, email string) (*RedeemResult, error) {
	if models.NormalizeCode(code) == "" || email == "" {
		return nil, ErrMissingParameter
	}

	var result *RedeemResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		badge, claim, err := models.FindBadgeByClaimCode(tx, code)
		if err != nil {
			return err
		}
		if badge == nil {
			return ErrUnknownCode
		}
		if claim.Claimed() && claim.ClaimedBy != email {
			return ErrCodeClaimed
		}

		engine := award.NewEngine(tx, s.signer, s.notifier)
		existing, err := engine.Find(email, badge.Shortname)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyAwarded
		}

		if !badge.RedeemClaimCode(code, email) {
			return ErrCodeClaimed
		}
		if err := tx.Save(claim).Error; err != nil {
			return err
		}

		instance, autoAwarded, err := engine.Award(badge, email)
		if err != nil {
			return err
		}
		if instance == nil {
			// Lost the insert race to a concurrent award.
			return ErrAlreadyAwarded
		}

		result = &RedeemResult{
			Instance:     instance,
			AutoAwarded:  autoAwarded,
			AssertionURL: s.signer.AssertionURL(instance.Hash),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReserveAndNotify binds a claim code to a recipient ahead of time and
// dispatches it through the notifier. An unclaimed code already reserved for
// the recipient is reused; otherwise a fresh one is generated. Returns nil
// when the recipient already holds the badge.
func (s *Service) ReserveAndNotify(ctx context.Context, shortname, email string) (*models.ClaimCode, error) {
	if shortname == "" || email == "" {
		return nil, ErrMissingParameter
	}

	var reserved *models.ClaimCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		badge, err := FindBadge(tx, shortname)
		if err != nil {
			return err
		}

		engine := award.NewEngine(tx, s.signer, s.notifier)
		existing, err := engine.Find(email, badge.Shortname)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		for i := range badge.ClaimCodes {
			c := &badge.ClaimCodes[i]
			if c.ReservedFor == email && !c.Claimed() {
				reserved = c
				return nil
			}
		}

		codes, err := badge.GenerateClaimCodes(1, s.generate, "")
		if err != nil {
			return err
		}
		claim := badge.GetClaimCode(codes[0])
		claim.ReservedFor = email
		if err := SaveBadge(tx, badge); err != nil {
			return err
		}
		reserved = claim
		return nil
	})
	if err != nil || reserved == nil {
		return nil, err
	}

	if s.notifier != nil {
		badge, err := FindBadge(s.db, shortname)
		if err != nil {
			return reserved, err
		}
		if err := s.notifier.NotifyClaimCode(email, badge, reserved.Code); err != nil {
			return reserved, err
		}
	}
	return reserved, nil
}

// FindBadge loads a badge by shortname with its claim codes, returning
// ErrUnknownBadge when absent (or soft-deleted).
func FindBadge(db *gorm.DB, shortname string) (*models.Badge, error) {
	var badge models.Badge
	err := db.Preload("ClaimCodes").Where("shortname = ?", shortname).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownBadge
	}
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// SaveBadge persists the badge aggregate including in-memory claim-code
// additions and edits. Removals are persisted separately (see
// DeleteClaimCode); gorm association saves do not delete missing rows.
func SaveBadge(db *gorm.DB, badge *models.Badge) error {
	return db.Session(&gorm.Session{FullSaveAssociations: true}).Save(badge).Error
}

// DeleteClaimCode removes a code from the badge and its row from the store.
func DeleteClaimCode(db *gorm.DB, badge *models.Badge, code string) error {
	claim := badge.GetClaimCode(code)
	if claim == nil {
		return nil
	}
	badge.RemoveClaimCode(code)
	return db.Unscoped().Delete(claim).Error
}
