package handlers

import (
	"context"
	"reflect"
	"testing"

	"github.com/badgehub/badgehub-api/internal/assertion"
	"github.com/badgehub/badgehub-api/internal/auth"
	"github.com/badgehub/badgehub-api/internal/award"
	"github.com/badgehub/badgehub-api/internal/claims"
	"github.com/badgehub/badgehub-api/internal/config"
	"github.com/badgehub/badgehub-api/internal/database"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	cookie       string
	badgeHandler *BadgeHandler
	claimHandler *ClaimHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{JWTSecret: "test-secret"}
	authHandler := auth.NewAuthHandler(cfg, db)

	issuer := models.Issuer{DiscordID: "issuer-1", Username: "issuer", Admin: true}
	if err := db.Create(&issuer).Error; err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	token, err := authHandler.GenerateToken(issuer.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	signer := assertion.NewSigner("test-secret", "pepper", "http://badges.test")
	engine := award.NewEngine(db, signer, nil)
	service := claims.NewService(db, signer, nil)

	return &testEnv{
		db:           db,
		cookie:       "auth_token=" + token,
		badgeHandler: NewBadgeHandler(db, signer, authHandler),
		claimHandler: NewClaimHandler(db, service, engine, authHandler, 100),
	}
}

func (env *testEnv) createBadge(t *testing.T, name string) string {
	t.Helper()
	req := &CreateBadgeRequest{}
	req.Cookie = env.cookie
	req.Body.Name = name
	resp, err := env.badgeHandler.HandleCreateBadge(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to create badge %q: %v", name, err)
	}
	return resp.Body.Shortname
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	if !errorsAs(err, &se) {
		t.Fatalf("expected a status error, got %v", err)
	}
	return se.GetStatus()
}

func errorsAs(err error, target *huma.StatusError) bool {
	se, ok := err.(huma.StatusError)
	if ok {
		*target = se
	}
	return ok
}

func TestHandleCreateBadge_DuplicateShortname(t *testing.T) {
	env := newTestEnv(t)

	env.createBadge(t, "Night Owl")

	req := &CreateBadgeRequest{}
	req.Cookie = env.cookie
	req.Body.Name = "Night Owl"
	_, err := env.badgeHandler.HandleCreateBadge(context.Background(), req)
	if err == nil {
		t.Fatal("expected conflict for duplicate shortname")
	}
	if status := statusOf(t, err); status != 409 {
		t.Errorf("expected 409, got %d", status)
	}
}

func TestClaimCodeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	shortname := env.createBadge(t, "Offline Badge")

	// Bulk add with a caller limit.
	addReq := &AddCodesRequest{Shortname: shortname}
	addReq.Cookie = env.cookie
	addReq.Body.Codes = []string{"alpha", "beta", "alpha", "gamma"}
	addReq.Body.Limit = 2
	addReq.Body.BatchName = "print-run"
	addResp, err := env.claimHandler.HandleAddCodes(context.Background(), addReq)
	if err != nil {
		t.Fatalf("add codes failed: %v", err)
	}
	if !reflect.DeepEqual(addResp.Body.Accepted, []string{"alpha", "beta"}) {
		t.Errorf("accepted = %v", addResp.Body.Accepted)
	}
	if !reflect.DeepEqual(addResp.Body.Rejected, []string{"alpha", "gamma"}) {
		t.Errorf("rejected = %v", addResp.Body.Rejected)
	}

	// Public redemption.
	redeemReq := &RedeemRequest{}
	redeemReq.Body.Code = "alpha"
	redeemReq.Body.Email = "foo@bar.org"
	redeemResp, err := env.claimHandler.HandleRedeem(context.Background(), redeemReq)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redeemResp.Body.AssertionURL == "" {
		t.Error("expected assertion URL")
	}

	// A second recipient hitting the same code gets a conflict.
	redeemReq2 := &RedeemRequest{}
	redeemReq2.Body.Code = "alpha"
	redeemReq2.Body.Email = "other@bar.org"
	_, err = env.claimHandler.HandleRedeem(context.Background(), redeemReq2)
	if err == nil {
		t.Fatal("expected conflict for claimed code")
	}
	if status := statusOf(t, err); status != 409 {
		t.Errorf("expected 409, got %d", status)
	}

	// Unknown codes are 404, missing parameters 400.
	unknownReq := &RedeemRequest{}
	unknownReq.Body.Code = "no-such-code"
	unknownReq.Body.Email = "foo@bar.org"
	if _, err := env.claimHandler.HandleRedeem(context.Background(), unknownReq); statusOf(t, err) != 404 {
		t.Errorf("unknown code status = %d", statusOf(t, err))
	}
	emptyReq := &RedeemRequest{}
	emptyReq.Body.Email = "foo@bar.org"
	if _, err := env.claimHandler.HandleRedeem(context.Background(), emptyReq); statusOf(t, err) != 400 {
		t.Errorf("missing code status = %d", statusOf(t, err))
	}

	// The unclaimed filter drops the consumed code.
	listReq := &ListCodesRequest{Shortname: shortname, Unclaimed: true}
	listReq.Cookie = env.cookie
	listResp, err := env.claimHandler.HandleListCodes(context.Background(), listReq)
	if err != nil {
		t.Fatalf("list codes failed: %v", err)
	}
	if len(listResp.Body) != 1 || listResp.Body[0].Code != "beta" {
		t.Errorf("unclaimed codes = %v", listResp.Body)
	}

	// Release returns it to the pool.
	releaseReq := &ReleaseCodeRequest{Shortname: shortname, Code: "alpha"}
	releaseReq.Cookie = env.cookie
	if _, err := env.claimHandler.HandleReleaseCode(context.Background(), releaseReq); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	listResp, _ = env.claimHandler.HandleListCodes(context.Background(), listReq)
	if len(listResp.Body) != 2 {
		t.Errorf("expected 2 unclaimed codes after release, got %v", listResp.Body)
	}

	// Remove deletes the row for good.
	removeReq := &RemoveCodeRequest{Shortname: shortname, Code: "beta"}
	removeReq.Cookie = env.cookie
	if _, err := env.claimHandler.HandleRemoveCode(context.Background(), removeReq); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	var count int64
	env.db.Model(&models.ClaimCode{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 code row after removal, got %d", count)
	}

	// Batch names survive the round trips.
	batchReq := &BatchNamesRequest{Shortname: shortname}
	batchReq.Cookie = env.cookie
	batchResp, err := env.claimHandler.HandleBatchNames(context.Background(), batchReq)
	if err != nil {
		t.Fatalf("batch names failed: %v", err)
	}
	if !reflect.DeepEqual(batchResp.Body.BatchNames, []string{"print-run"}) {
		t.Errorf("batch names = %v", batchResp.Body.BatchNames)
	}
}

func TestHandleGenerateCodes(t *testing.T) {
	env := newTestEnv(t)
	shortname := env.createBadge(t, "Generated")

	genReq := &GenerateCodesRequest{Shortname: shortname}
	genReq.Cookie = env.cookie
	genReq.Body.Count = 5
	genReq.Body.BatchName = "mailout"
	genResp, err := env.claimHandler.HandleGenerateCodes(context.Background(), genReq)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(genResp.Body.Codes) != 5 {
		t.Fatalf("expected 5 codes, got %v", genResp.Body.Codes)
	}

	var count int64
	env.db.Model(&models.ClaimCode{}).Count(&count)
	if count != 5 {
		t.Errorf("expected 5 persisted codes, got %d", count)
	}

	over := &GenerateCodesRequest{Shortname: shortname}
	over.Cookie = env.cookie
	over.Body.Count = 1000
	if _, err := env.claimHandler.HandleGenerateCodes(context.Background(), over); statusOf(t, err) != 400 {
		t.Errorf("over-limit status = %d", statusOf(t, err))
	}
}

func TestHandleCredit(t *testing.T) {
	env := newTestEnv(t)

	req := &CreateBadgeRequest{}
	req.Cookie = env.cookie
	req.Body.Name = "Early Bird"
	req.Body.Behaviors = []models.BehaviorRequirement{{Shortname: "sunrise", Count: 2}}
	if _, err := env.badgeHandler.HandleCreateBadge(context.Background(), req); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	creditReq := &CreditRequest{}
	creditReq.Cookie = env.cookie
	creditReq.Body.Email = "worm@x.org"
	creditReq.Body.Behaviors = []string{"sunrise"}
	resp, err := env.claimHandler.HandleCredit(context.Background(), creditReq)
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if len(resp.Body.Awarded) != 0 {
		t.Errorf("premature award: %v", resp.Body.Awarded)
	}

	resp, err = env.claimHandler.HandleCredit(context.Background(), creditReq)
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if !reflect.DeepEqual(resp.Body.Awarded, []string{"early-bird"}) {
		t.Errorf("awarded = %v", resp.Body.Awarded)
	}
}

func TestHandleAuditCodes_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	shortname := env.createBadge(t, "Audited")

	addReq := &AddCodesRequest{Shortname: shortname}
	addReq.Cookie = env.cookie
	addReq.Body.Codes = []string{"one", "two"}
	if _, err := env.claimHandler.HandleAddCodes(context.Background(), addReq); err != nil {
		t.Fatalf("add codes failed: %v", err)
	}

	auditReq := &AuditCodesRequest{}
	auditReq.Cookie = env.cookie
	auditResp, err := env.claimHandler.HandleAuditCodes(context.Background(), auditReq)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(auditResp.Body) != 2 {
		t.Errorf("audit rows = %v", auditResp.Body)
	}

	// A non-admin issuer is rejected.
	nonAdmin := models.Issuer{DiscordID: "issuer-2"}
	env.db.Create(&nonAdmin)
	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, env.db)
	token, _ := authHandler.GenerateToken(nonAdmin.ID)
	auditReq2 := &AuditCodesRequest{}
	auditReq2.Cookie = "auth_token=" + token
	if _, err := env.claimHandler.HandleAuditCodes(context.Background(), auditReq2); statusOf(t, err) != 403 {
		t.Errorf("non-admin audit status = %d", statusOf(t, err))
	}
}
