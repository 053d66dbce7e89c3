package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/badgehub/badgehub-api/internal/auth"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"
)

type AssertionHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewAssertionHandler(db *gorm.DB, authHandler *auth.AuthHandler) *AssertionHandler {
	return &AssertionHandler{db: db, authHandler: authHandler}
}

type GetAssertionRequest struct {
	Hash string `path:"hash"`
}

type GetAssertionResponse struct {
	Body struct {
		BadgeShortname string    `json:"badgeShortname"`
		Assertion      string    `json:"assertion"`
		IssuedOn       time.Time `json:"issuedOn"`
	}
}

// HandleGetAssertion is the public verification endpoint: anyone holding an
// assertion hash can fetch the signed assertion.
func (h *AssertionHandler) HandleGetAssertion(ctx context.Context, input *GetAssertionRequest) (*GetAssertionResponse, error) {
	var instance models.BadgeInstance
	err := h.db.Where("hash = ?", input.Hash).First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, huma.Error404NotFound("Assertion not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load assertion")
	}

	res := &GetAssertionResponse{}
	res.Body.BadgeShortname = instance.BadgeShortname
	res.Body.Assertion = instance.Assertion
	res.Body.IssuedOn = instance.IssuedOn
	return res, nil
}

type ListAwardsRequest struct {
	auth.AuthInput
	Email string `path:"email"`
}

type AwardView struct {
	BadgeShortname string    `json:"badgeShortname"`
	Hash           string    `json:"hash"`
	IssuedOn       time.Time `json:"issuedOn"`
	Seen           bool      `json:"seen"`
}

type ListAwardsResponse struct {
	Body []AwardView
}

func (h *AssertionHandler) HandleListAwards(ctx context.Context, input *ListAwardsRequest) (*ListAwardsResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	var instances []models.BadgeInstance
	if err := h.db.Where("email = ?", input.Email).Order("issued_on asc").Find(&instances).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list awards")
	}

	res := &ListAwardsResponse{Body: []AwardView{}}
	for _, instance := range instances {
		res.Body = append(res.Body, AwardView{
			BadgeShortname: instance.BadgeShortname,
			Hash:           instance.Hash,
			IssuedOn:       instance.IssuedOn,
			Seen:           instance.Seen,
		})
	}
	return res, nil
}

type MarkSeenRequest struct {
	auth.AuthInput
	Email string `path:"email"`
}

// HandleMarkSeen flags all of a recipient's awards as seen, for the unread
// indicator in notification UIs.
func (h *AssertionHandler) HandleMarkSeen(ctx context.Context, input *MarkSeenRequest) (*struct{}, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	err := h.db.Model(&models.BadgeInstance{}).Where("email = ? AND seen = ?", input.Email, false).Update("seen", true).Error
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to mark awards seen")
	}
	return nil, nil
}
