package handlers

import (
	"context"
	"errors"

	"github.com/badgehub/badgehub-api/internal/auth"
	"github.com/badgehub/badgehub-api/internal/award"
	"github.com/badgehub/badgehub-api/internal/claims"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/gorm"
)

type ClaimHandler struct {
	db          *gorm.DB
	service     *claims.Service
	engine      *award.Engine
	authHandler *auth.AuthHandler
	codeLimit   int
}

func NewClaimHandler(db *gorm.DB, service *claims.Service, engine *award.Engine, authHandler *auth.AuthHandler, codeLimit int) *ClaimHandler {
	return &ClaimHandler{db: db, service: service, engine: engine, authHandler: authHandler, codeLimit: codeLimit}
}

// claimError maps the claims package's typed outcomes onto HTTP statuses.
func claimError(err error) error {
	switch {
	case errors.Is(err, claims.ErrMissingParameter):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, claims.ErrUnknownCode), errors.Is(err, claims.ErrUnknownBadge):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, claims.ErrCodeClaimed), errors.Is(err, claims.ErrAlreadyAwarded):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

type RedeemRequest struct {
	Body struct {
		Code  string `json:"code" doc:"Claim code to redeem" required:"true"`
		Email string `json:"email" doc:"Recipient email" required:"true"`
	}
}

type RedeemResponse struct {
	Body struct {
		AssertionURL string   `json:"assertionUrl"`
		AutoAwarded  []string `json:"autoAwarded"`
	}
}

// HandleRedeem is the public claim endpoint: recipients are not issuers, so
// no auth beyond holding a valid code.
func (h *ClaimHandler) HandleRedeem(ctx context.Context, input *RedeemRequest) (*RedeemResponse, error) {
	result, err := h.service.Redeem(ctx, input.Body.Code, input.Body.Email)
	if err != nil {
		return nil, claimError(err)
	}

	res := &RedeemResponse{}
	res.Body.AssertionURL = result.AssertionURL
	res.Body.AutoAwarded = []string{}
	for _, instance := range result.AutoAwarded {
		res.Body.AutoAwarded = append(res.Body.AutoAwarded, instance.BadgeShortname)
	}
	return res, nil
}

type ReserveRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
	Body      struct {
		Email string `json:"email" doc:"Recipient to reserve a code for" required:"true"`
	}
}

type ReserveResponse struct {
	Body struct {
		Code           string `json:"code,omitempty"`
		AlreadyAwarded bool   `json:"alreadyAwarded"`
	}
}

func (h *ClaimHandler) HandleReserve(ctx context.Context, input *ReserveRequest) (*ReserveResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	claim, err := h.service.ReserveAndNotify(ctx, input.Shortname, input.Body.Email)
	if err != nil {
		return nil, claimError(err)
	}

	res := &ReserveResponse{}
	if claim == nil {
		res.Body.AlreadyAwarded = true
	} else {
		res.Body.Code = claim.Code
	}
	return res, nil
}

type ListCodesRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
	Unclaimed bool   `query:"unclaimed" doc:"Only codes not yet claimed"`
	Batch     string `query:"batch" doc:"Only codes in this batch"`
}

type ListCodesResponse struct {
	Body []models.ClaimCodeView
}

func (h *ClaimHandler) HandleListCodes(ctx context.Context, input *ListCodesRequest) (*ListCodesResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		return nil, claimError(err)
	}
	return &ListCodesResponse{Body: badge.GetClaimCodes(models.ClaimCodeFilter{
		Unclaimed: input.Unclaimed,
		BatchName: input.Batch,
	})}, nil
}

type AddCodesRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
	Body      struct {
		Codes     []string `json:"codes" required:"true"`
		Limit     int      `json:"limit,omitempty" doc:"Accept at most this many net-new codes"`
		Multi     bool     `json:"multi,omitempty" doc:"Create multi-use codes"`
		BatchName string   `json:"batchName,omitempty"`
	}
}

type AddCodesResponse struct {
	Body struct {
		Accepted []string `json:"accepted"`
		Rejected []string `json:"rejected"`
	}
}

func (h *ClaimHandler) HandleAddCodes(ctx context.Context, input *AddCodesRequest) (*AddCodesResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		return nil, claimError(err)
	}

	// The configured cap bounds every bulk upload, caller limit or not.
	limit := input.Body.Limit
	if limit <= 0 || limit > h.codeLimit {
		limit = h.codeLimit
	}

	accepted, rejected := badge.AddClaimCodes(input.Body.Codes, limit, input.Body.BatchName)
	if input.Body.Multi {
		for _, code := range accepted {
			badge.GetClaimCode(code).Multi = true
		}
	}
	if err := claims.SaveBadge(h.db, badge); err != nil {
		return nil, huma.Error500InternalServerError("Failed to save claim codes")
	}

	res := &AddCodesResponse{}
	res.Body.Accepted = accepted
	res.Body.Rejected = rejected
	return res, nil
}

type GenerateCodesRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
	Body      struct {
		Count     int    `json:"count" required:"true" minimum:"1"`
		BatchName string `json:"batchName,omitempty"`
	}
}

type GenerateCodesResponse struct {
	Body struct {
		Codes []string `json:"codes"`
	}
}

func (h *ClaimHandler) HandleGenerateCodes(ctx context.Context, input *GenerateCodesRequest) (*GenerateCodesResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	if input.Body.Count > h.codeLimit {
		return nil, huma.Error400BadRequest("Count exceeds the claim code limit")
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		return nil, claimError(err)
	}

	codes, err := badge.GenerateClaimCodes(input.Body.Count, claims.GeneratePhrases, input.Body.BatchName)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate codes: " + err.Error())
	}
	if err := claims.SaveBadge(h.db, badge); err != nil {
		return nil, huma.Error500InternalServerError("Failed to save claim codes")
	}

	res := &GenerateCodesResponse{}
	res.Body.Codes = codes
	return res, nil
}

type RemoveCodeRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
	Code      string `path:"code"`
}

func (h *ClaimHandler) HandleRemoveCode(ctx context.Context, input *RemoveCodeRequest) (*struct{}, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		return nil, claimError(err)
	}
	if err := claims.DeleteClaimCode(h.db, badge, input.Code); err != nil {
		return nil, huma.Error500InternalServerError("Failed to remove claim code")
	}
	return nil, nil
}

type ReleaseCodeRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
	Code      string `path:"code"`
}

func (h *ClaimHandler) HandleReleaseCode(ctx context.Context, input *ReleaseCodeRequest) (*struct{}, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		return nil, claimError(err)
	}
	if !badge.HasClaimCode(input.Code) {
		return nil, huma.Error404NotFound("Unknown claim code")
	}
	badge.ReleaseClaimCode(input.Code)
	if err := claims.SaveBadge(h.db, badge); err != nil {
		return nil, huma.Error500InternalServerError("Failed to release claim code")
	}
	return nil, nil
}

type BatchNamesRequest struct {
	auth.AuthInput
	Shortname string `path:"shortname"`
}

type BatchNamesResponse struct {
	Body struct {
		BatchNames []string `json:"batchNames"`
	}
}

func (h *ClaimHandler) HandleBatchNames(ctx context.Context, input *BatchNamesRequest) (*BatchNamesResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	badge, err := claims.FindBadge(h.db, input.Shortname)
	if err != nil {
		return nil, claimError(err)
	}
	res := &BatchNamesResponse{}
	res.Body.BatchNames = badge.BatchNames()
	return res, nil
}

type AuditCodesRequest struct {
	auth.AuthInput
}

type AuditCodesResponse struct {
	Body []models.AuditClaimCode
}

func (h *ClaimHandler) HandleAuditCodes(ctx context.Context, input *AuditCodesRequest) (*AuditCodesResponse, error) {
	if _, err := h.authHandler.RequireAdmin(ctx, input.Cookie); err != nil {
		return nil, err
	}

	all, err := models.AllClaimCodes(h.db)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list claim codes")
	}
	return &AuditCodesResponse{Body: all}, nil
}

type CreditRequest struct {
	auth.AuthInput
	Body struct {
		Email     string   `json:"email" required:"true"`
		Behaviors []string `json:"behaviors" required:"true" doc:"Behavior shortnames to credit once each"`
	}
}

type CreditResponse struct {
	Body struct {
		Awarded []string `json:"awarded"`
	}
}

func (h *ClaimHandler) HandleCredit(ctx context.Context, input *CreditRequest) (*CreditResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	awarded, err := h.engine.AddCredits(input.Body.Email, input.Body.Behaviors)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to add credits: " + err.Error())
	}

	res := &CreditResponse{}
	res.Body.Awarded = []string{}
	for _, instance := range awarded {
		res.Body.Awarded = append(res.Body.Awarded, instance.BadgeShortname)
	}
	return res, nil
}

type BackfillRequest struct {
	auth.AuthInput
	Body struct {
		Email  string `json:"email" required:"true"`
		Notify bool   `json:"notify,omitempty" doc:"Send a notification per new award"`
	}
}

type BackfillResponse struct {
	Body struct {
		Awarded []string `json:"awarded"`
	}
}

// HandleBackfill retroactively re-evaluates every category for one
// recipient, for use after category definitions change.
func (h *ClaimHandler) HandleBackfill(ctx context.Context, input *BackfillRequest) (*BackfillResponse, error) {
	if _, err := h.authHandler.RequireAdmin(ctx, input.Cookie); err != nil {
		return nil, err
	}

	awarded, err := h.engine.AwardCategoryBadges(input.Body.Email, input.Body.Notify)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to backfill: " + err.Error())
	}

	res := &BackfillResponse{}
	res.Body.Awarded = []string{}
	for _, instance := range awarded {
		res.Body.Awarded = append(res.Body.Awarded, instance.BadgeShortname)
	}
	return res, nil
}
