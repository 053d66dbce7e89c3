package award

import (
	"errors"
	"log"
	"time"

	"github.com/badgehub/badgehub-api/internal/assertion"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/badgehub/badgehub-api/internal/notifier"
	"gorm.io/gorm"
)

// Engine creates badge instances. It owns the one-instance-per-(email, badge)
// invariant and drives category aggregation whenever a member badge is
// awarded.
type Engine struct {
	db       *gorm.DB
	signer   *assertion.Signer
	notifier notifier.Notifier
}

func NewEngine(db *gorm.DB, signer *assertion.Signer, notifier notifier.Notifier) *Engine {
	return &Engine{db: db, signer: signer, notifier: notifier}
}

// Find returns the recipient's instance of a badge, or nil.
func (e *Engine) Find(email, shortname string) (*models.BadgeInstance, error) {
	var instance models.BadgeInstance
	err := e.db.Where("email = ? AND badge_shortname = ?", email, shortname).First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// Award gives badge to email. If the recipient already holds the badge it
// returns (nil, nil, nil). On a first award it persists a new instance and,
// for category-member badges, re-evaluates each declared category in order;
// meta-badges newly crossing their requirement are awarded and returned in
// autoAwarded. A mid-sweep error aborts the remaining categories; instances
// persisted before the failure stand (the sweep recomputes from state and is
// safe to re-run).
func (e *Engine) Award(badge *models.Badge, email string) (instance *models.BadgeInstance, autoAwarded []*models.BadgeInstance, err error) {
	instance, err = e.createInstance(badge, email)
	if err != nil || instance == nil {
		return nil, nil, err
	}

	autoAwarded = []*models.BadgeInstance{}
	for _, category := range badge.Categories {
		meta, err := e.evaluateCategory(email, category)
		if err != nil {
			return instance, autoAwarded, err
		}
		if meta != nil {
			autoAwarded = append(autoAwarded, meta)
		}
	}
	return instance, autoAwarded, nil
}

// AwardOrFind is Award for flows that need an instance regardless of
// novelty: when the recipient already holds the badge the existing instance
// is returned instead of nil.
func (e *Engine) AwardOrFind(badge *models.Badge, email string) (*models.BadgeInstance, error) {
	instance, _, err := e.Award(badge, email)
	if err != nil {
		return nil, err
	}
	if instance != nil {
		return instance, nil
	}
	return e.Find(email, badge.Shortname)
}

// AwardCategoryBadges re-evaluates every category in the catalogue for one
// recipient. Used by retroactive-award tooling after category definitions
// change. When notify is set, each new award is dispatched through the
// notifier (failures are logged, not fatal).
func (e *Engine) AwardCategoryBadges(email string, notify bool) ([]*models.BadgeInstance, error) {
	var metaBadges []models.Badge
	if err := e.db.Where("category_award <> ''").Order("id asc").Find(&metaBadges).Error; err != nil {
		return nil, err
	}

	awarded := []*models.BadgeInstance{}
	for i := range metaBadges {
		instance, err := e.evaluateCategory(email, metaBadges[i].CategoryAward)
		if err != nil {
			return awarded, err
		}
		if instance == nil {
			continue
		}
		awarded = append(awarded, instance)
		if notify && e.notifier != nil {
			if err := e.notifier.NotifyAward(email, &metaBadges[i]); err != nil {
				log.Printf("Failed to notify %s about %s: %v", email, metaBadges[i].Shortname, err)
			}
		}
	}
	return awarded, nil
}

// evaluateCategory recomputes the recipient's weighted credit for one
// category from the current instance set and awards the category's
// meta-badge when the requirement is met. Returns nil when the category has
// no meta-badge, the requirement is unmet, or the recipient already holds
// the meta-badge. Always recomputed, never cached: the instance set is the
// source of truth.
func (e *Engine) evaluateCategory(email, category string) (*models.BadgeInstance, error) {
	var meta models.Badge
	err := e.db.Where("category_award = ?", category).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Category with no meta-badge is inert.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	held, err := e.heldShortnames(email)
	if err != nil {
		return nil, err
	}
	if held[meta.Shortname] {
		return nil, nil
	}

	var members []models.Badge
	if err := e.db.Where("category_weight > 0").Find(&members).Error; err != nil {
		return nil, err
	}

	total := 0
	for i := range members {
		if !held[members[i].Shortname] {
			continue
		}
		for _, c := range members[i].Categories {
			if c == category {
				total += members[i].CategoryWeight
				break
			}
		}
	}
	if total < meta.CategoryRequirement {
		return nil, nil
	}

	// Meta-badges carry no categories of their own after normalization, so
	// this recursion terminates after one level.
	instance, _, err := e.Award(&meta, email)
	return instance, err
}

// AddCredits increments the recipient's credit count for each behavior and
// awards any standard badge whose every behavior requirement is now met.
// Returned instances include both the directly triggered badges and any
// category meta-badges they cascaded into.
func (e *Engine) AddCredits(email string, behaviors []string) ([]*models.BadgeInstance, error) {
	counts, err := e.incrementCredits(email, behaviors)
	if err != nil {
		return nil, err
	}

	var candidates []models.Badge
	if err := e.db.Order("id asc").Find(&candidates).Error; err != nil {
		return nil, err
	}

	awarded := []*models.BadgeInstance{}
	for i := range candidates {
		badge := &candidates[i]
		if len(badge.Behaviors) == 0 || !meetsRequirements(badge.Behaviors, counts) {
			continue
		}
		instance, auto, err := e.Award(badge, email)
		if err != nil {
			return awarded, err
		}
		if instance != nil {
			awarded = append(awarded, instance)
			awarded = append(awarded, auto...)
		}
	}
	return awarded, nil
}

func meetsRequirements(reqs []models.BehaviorRequirement, counts map[string]int) bool {
	for _, req := range reqs {
		if counts[req.Shortname] < req.Count {
			return false
		}
	}
	return true
}

func (e *Engine) incrementCredits(email string, behaviors []string) (map[string]int, error) {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		for _, behavior := range behaviors {
			var credit models.BehaviorCredit
			if err := tx.Where(models.BehaviorCredit{Email: email, Behavior: behavior}).FirstOrInit(&credit).Error; err != nil {
				return err
			}
			credit.Count++
			if err := tx.Save(&credit).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var credits []models.BehaviorCredit
	if err := e.db.Where("email = ?", email).Find(&credits).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(credits))
	for _, c := range credits {
		counts[c.Behavior] = c.Count
	}
	return counts, nil
}

func (e *Engine) heldShortnames(email string) (map[string]bool, error) {
	var instances []models.BadgeInstance
	if err := e.db.Where("email = ?", email).Find(&instances).Error; err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(instances))
	for _, instance := range instances {
		held[instance.BadgeShortname] = true
	}
	return held, nil
}

// createInstance persists a new instance, or returns nil when the recipient
// already holds the badge. The pre-check is the fast path; the composite
// unique index catches the check-then-act race and surfaces it as
// gorm.ErrDuplicatedKey.
func (e *Engine) createInstance(badge *models.Badge, email string) (*models.BadgeInstance, error) {
	existing, err := e.Find(email, badge.Shortname)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	issuedOn := time.Now()
	signed, hash, err := e.signer.Sign(badge, email, issuedOn)
	if err != nil {
		return nil, err
	}

	instance := models.BadgeInstance{
		Email:          email,
		BadgeShortname: badge.Shortname,
		Assertion:      signed,
		Hash:           hash,
		IssuedOn:       issuedOn,
	}
	if err := e.db.Create(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}
