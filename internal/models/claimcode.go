package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type ClaimCode struct {
	gorm.Model
	BadgeID uint   `gorm:"uniqueIndex:idx_badge_code" json:"-"`
	Code    string `gorm:"uniqueIndex:idx_badge_code" json:"code"`

	// ClaimedBy is the redeemer's email. Empty means unclaimed. Multi-use
	// codes are never marked claimed regardless of redemptions.
	ClaimedBy   string `json:"claimedBy,omitempty"`
	Multi       bool   `json:"multi"`
	ReservedFor string `json:"reservedFor,omitempty"`
	BatchName   string `json:"batchName,omitempty"`

	Evidence []Evidence `gorm:"foreignKey:ClaimCodeID" json:"evidence,omitempty"`
}

// Evidence is metadata for one externally stored file attached to a claim
// code. The bytes live in the blob store under Path.
type Evidence struct {
	gorm.Model
	ClaimCodeID uint   `json:"-"`
	Path        string `json:"path"`
	MimeType    string `json:"mimeType"`
}

// Claimed reports whether the code has been consumed. Multi-use codes are
// never considered claimed.
func (c *ClaimCode) Claimed() bool {
	return !c.Multi && c.ClaimedBy != ""
}

// NormalizeCode is the canonical form used for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CodeGenerator produces count candidate claim codes. Candidates may collide
// with codes already on the badge; GenerateClaimCodes filters and retries.
type CodeGenerator func(count int) []string

// ClaimCodeView is the public projection of a claim code.
type ClaimCodeView struct {
	Code        string `json:"code"`
	Claimed     bool   `json:"claimed"`
	ReservedFor string `json:"reservedFor,omitempty"`
	BatchName   string `json:"batchName,omitempty"`
}

// ClaimCodeFilter narrows GetClaimCodes.
type ClaimCodeFilter struct {
	Unclaimed bool
	BatchName string
}

func (b *Badge) HasClaimCode(code string) bool {
	return b.GetClaimCode(code) != nil
}

func (b *Badge) GetClaimCode(code string) *ClaimCode {
	code = NormalizeCode(code)
	for i := range b.ClaimCodes {
		if b.ClaimCodes[i].Code == code {
			return &b.ClaimCodes[i]
		}
	}
	return nil
}

// GetClaimCodes projects the badge's codes to their public view, optionally
// filtered to unclaimed codes or a single batch.
func (b *Badge) GetClaimCodes(filter ClaimCodeFilter) []ClaimCodeView {
	views := []ClaimCodeView{}
	for i := range b.ClaimCodes {
		c := &b.ClaimCodes[i]
		if filter.Unclaimed && c.Claimed() {
			continue
		}
		if filter.BatchName != "" && c.BatchName != filter.BatchName {
			continue
		}
		views = append(views, ClaimCodeView{
			Code:        c.Code,
			Claimed:     c.Claimed(),
			ReservedFor: c.ReservedFor,
			BatchName:   c.BatchName,
		})
	}
	return views
}

// ClaimCodeClaimed reports whether a code has been consumed. found is false
// for codes the badge does not carry.
func (b *Badge) ClaimCodeClaimed(code string) (claimed, found bool) {
	c := b.GetClaimCode(code)
	if c == nil {
		return false, false
	}
	return c.Claimed(), true
}

// AddClaimCodes appends codes to the badge. Incoming codes are normalized and
// deduplicated (first occurrence wins); codes already on the badge are
// rejected. When limit is positive only the first limit net-new codes are
// accepted and the overflow is rejected. Relative order is preserved within
// each bucket. The badge must be persisted by the caller afterwards.
func (b *Badge) AddClaimCodes(codes []string, limit int, batchName string) (accepted, rejected []string) {
	accepted = []string{}
	rejected = []string{}
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		if code == "" {
			continue
		}
		if seen[code] || b.HasClaimCode(code) {
			rejected = append(rejected, code)
			continue
		}
		if limit > 0 && len(accepted) >= limit {
			rejected = append(rejected, code)
			continue
		}
		seen[code] = true
		accepted = append(accepted, code)
		b.ClaimCodes = append(b.ClaimCodes, ClaimCode{
			BadgeID:   b.ID,
			Code:      code,
			BatchName: batchName,
		})
	}
	return accepted, rejected
}

// generateRetryRounds bounds the collision-retry loop. Each round requests
// exactly the remaining shortfall, so this only trips when the generator's
// address space is nearly exhausted.
const generateRetryRounds = 10

// GenerateClaimCodes adds count net-new codes produced by gen, retrying the
// shortfall whenever generated codes collide with codes already on the badge.
func (b *Badge) GenerateClaimCodes(count int, gen CodeGenerator, batchName string) ([]string, error) {
	collected := []string{}
	for round := 0; len(collected) < count; round++ {
		if round >= generateRetryRounds {
			return collected, fmt.Errorf("claim code generator exhausted after %d rounds (%d/%d codes)", round, len(collected), count)
		}
		accepted, _ := b.AddClaimCodes(gen(count-len(collected)), 0, batchName)
		collected = append(collected, accepted...)
	}
	return collected, nil
}

// RemoveClaimCode deletes a code entry; no-op if the badge does not carry it.
func (b *Badge) RemoveClaimCode(code string) {
	code = NormalizeCode(code)
	for i := range b.ClaimCodes {
		if b.ClaimCodes[i].Code == code {
			b.ClaimCodes = append(b.ClaimCodes[:i], b.ClaimCodes[i+1:]...)
			return
		}
	}
}

// ReleaseClaimCode returns a code to the unclaimed pool without removing it.
func (b *Badge) ReleaseClaimCode(code string) {
	if c := b.GetClaimCode(code); c != nil {
		c.ClaimedBy = ""
		c.ReservedFor = ""
	}
}

// RedeemClaimCode marks a single-use code claimed by email. Redemption
// succeeds if the code is unclaimed or already claimed by the same email, and
// always succeeds for multi-use codes. The caller persists the badge.
func (b *Badge) RedeemClaimCode(code, email string) bool {
	c := b.GetClaimCode(code)
	if c == nil {
		return false
	}
	if c.Multi {
		return true
	}
	if c.ClaimedBy != "" && c.ClaimedBy != email {
		return false
	}
	c.ClaimedBy = email
	return true
}

// BatchNames lists distinct batch names across the badge's codes in
// insertion order.
func (b *Badge) BatchNames() []string {
	names := []string{}
	seen := map[string]bool{}
	for i := range b.ClaimCodes {
		name := b.ClaimCodes[i].BatchName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// FindBadgeByClaimCode locates the badge owning code, with its claim codes
// preloaded. Returns (nil, nil, nil) when no badge carries the code.
func FindBadgeByClaimCode(db *gorm.DB, code string) (*Badge, *ClaimCode, error) {
	code = NormalizeCode(code)
	var entry ClaimCode
	err := db.Where("code = ?", code).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var badge Badge
	if err := db.Preload("ClaimCodes").First(&badge, entry.BadgeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Badge soft-deleted out from under its codes.
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &badge, badge.GetClaimCode(code), nil
}

// AuditClaimCode is one row of the cross-badge admin listing.
type AuditClaimCode struct {
	BadgeShortname string `json:"badgeShortname"`
	ClaimCodeView
}

// AllClaimCodes lists every claim code across all non-deleted badges.
func AllClaimCodes(db *gorm.DB) ([]AuditClaimCode, error) {
	var badges []Badge
	if err := db.Preload("ClaimCodes").Order("id asc").Find(&badges).Error; err != nil {
		return nil, err
	}
	all := []AuditClaimCode{}
	for i := range badges {
		for _, view := range badges[i].GetClaimCodes(ClaimCodeFilter{}) {
			all = append(all, AuditClaimCode{BadgeShortname: badges[i].Shortname, ClaimCodeView: view})
		}
	}
	return all, nil
}
