package handlers

import (
	"context"
	"errors"

	"github.com/badgehub/badgehub-api/internal/assertion"
	"github.com/badgehub/badgehub-api/internal/auth"
	"github.com/badgehub/badgehub-api/internal/claims"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"
)

type BadgeHandler struct {
	db          *gorm.DB
	signer      *assertion.Signer
	authHandler *auth.AuthHandler
}

func NewBadgeHandler(db *gorm.DB, signer *assertion.Signer, authHandler *auth.AuthHandler) *BadgeHandler {
	return &BadgeHandler{db: db, signer: signer, authHandler: authHandler}
}

type CreateBadgeRequest struct {
	auth.AuthInput
	Body struct {
		Shortname           string                       `json:"shortname,omitempty" doc:"Unique slug; derived from name when absent"`
		Name                string                       `json:"name" doc:"Display name" required:"true"`
		Description         string                       `json:"description"`
		Image               string                       `json:"image" doc:"URL to badge image"`
		Criteria            string                       `json:"criteria" doc:"Criteria text or URL"`
		Behaviors           []models.BehaviorRequirement `json:"behaviors,omitempty" doc:"Credit thresholds for auto-award"`
		Categories          []string                     `json:"categories,omitempty" doc:"Categories this badge contributes to"`
		CategoryWeight      int                          `json:"categoryWeight,omitempty"`
		CategoryAward       string                       `json:"categoryAward,omitempty" doc:"Category this meta-badge is awarded for"`
		CategoryRequirement int                          `json:"categoryRequirement,omitempty"`
	}
}

type CreateBadgeResponse struct {
	Body struct {
		ID        uint   `json:"id"`
		Shortname string `json:"shortname"`
	}
}

func (h *BadgeHandler) HandleCreateBadge(ctx context.Context, input *CreateBadgeRequest) (*CreateBadgeResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge := models.Badge{
		Shortname:           input.Body.Shortname,
		Name:                input.Body.Name,
		Description:         input.Body.Description,
		Image:               input.Body.Image,
		Criteria:            input.Body.Criteria,
		Behaviors:           input.Body.Behaviors,
		Categories:          input.Body.Categories,
		CategoryWeight:      input.Body.CategoryWeight,
		CategoryAward:       input.Body.CategoryAward,
		CategoryRequirement: input.Body.CategoryRequirement,
	}

	if err := h.db.Create(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, huma.Error409Conflict("Badge shortname already exists")
		}
		return nil, huma.Error500InternalServerError("Failed to create badge: " + err.Error())
	}

	res := &CreateBadgeResponse{}
	res.Body.ID = badge.ID
	res.Body.Shortname = badge.Shortname
	return res, nil
}

type ListBadgesRequest struct {
	auth.AuthInput
}

type BadgeSummary struct {
	Shortname   string   `json:"shortname"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Categories  []string `json:"categories,omitempty"`
}

type ListBadgesResponse struct {
	Body []BadgeSummary
}

func (h *BadgeHandler) HandleListBadges(ctx context.Context, input *ListBadgesRequest) (*ListBadgesResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	var badges []models.Badge
	if err := h.db.Order("id asc").Find(&badges).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list badges")
	}

	res := &ListBadgesResponse{Body: []BadgeSummary{}}
	for i := range badges {
		res.Body = append(res.Body, BadgeSummary{
			Shortname:   badges[i].Shortname,
			Name:        badges[i].Name,
			Description: badges[i].Description,
			Image:       badges[i].Image,
			Categories:  badges[i].Categories,
		})
	}
	return res, nil
}

type GetBadgeRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
}

type GetBadgeResponse struct {
	Body models.Badge
}

func (h *BadgeHandler) HandleGetBadge(ctx context.Context, input *GetBadgeRequest) (*GetBadgeResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		if errors.Is(err, claims.ErrUnknownBadge) {
			return nil, huma.Error404NotFound("Badge not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load badge")
	}
	return &GetBadgeResponse{Body: *badge}, nil
}

type DeleteBadgeRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
}

func (h *BadgeHandler) HandleDeleteBadge(ctx context.Context, input *DeleteBadgeRequest) (*struct{}, error) {
	if _, err := h.authHandler.RequireAdmin(ctx, input.Cookie); err != nil {
		return nil, err
	}

	// Soft delete; the badge's assertions remain publicly verifiable and the
	// delete can be undone at the store level.
	if err := h.db.Where("shortname = ?", input.Shortname).Delete(&models.Badge{}).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete badge")
	}
	return nil, nil
}

type PublicBadgeRequest struct {
	Shortname string `path:"shortname"`
}

type PublicBadgeResponse struct {
	Body struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		Criteria    string `json:"criteria"`
	}
}

// HandlePublicBadge serves the public badge-class JSON that assertions point
// at. No auth; this is the document verifiers fetch.
func (h *BadgeHandler) HandlePublicBadge(ctx context.Context, input *PublicBadgeRequest) (*PublicBadgeResponse, error) {
	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		if errors.Is(err, claims.ErrUnknownBadge) {
			return nil, huma.Error404NotFound("Badge not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load badge")
	}

	res := &PublicBadgeResponse{}
	res.Body.ID = h.signer.BadgeURL(badge.Shortname)
	res.Body.Name = badge.Name
	res.Body.Description = badge.Description
	res.Body.Image = badge.Image
	res.Body.Criteria = badge.Criteria
	return res, nil
}
