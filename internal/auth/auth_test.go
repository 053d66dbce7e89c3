package auth

import (
	"context"
	"testing"

	"github.com/badgehub/badgehub-api/internal/config"
	"github.com/badgehub/badgehub-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestHandleMe(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	db.AutoMigrate(&models.Issuer{})

	issuer := models.Issuer{
		DiscordID: "123456",
		Username:  "testissuer",
		Email:     "issuer@example.com",
		Avatar:    "avatar_url",
	}
	db.Create(&issuer)

	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, db)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(issuer.ID)
		input := &AuthInput{
			Cookie: "auth_token=" + token,
		}
		resp, err := handler.HandleMe(context.Background(), input)
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}

		if resp.Body.Username != issuer.Username {
			t.Errorf("expected username %s, got %s", issuer.Username, resp.Body.Username)
		}
		if resp.Body.Email != issuer.Email {
			t.Errorf("expected email %s, got %s", issuer.Email, resp.Body.Email)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		input := &AuthInput{}
		_, err := handler.HandleMe(context.Background(), input)
		if err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	db.AutoMigrate(&models.Issuer{})

	regular := models.Issuer{DiscordID: "regular"}
	db.Create(&regular)
	admin := models.Issuer{DiscordID: "admin", Admin: true}
	db.Create(&admin)

	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)

	regularToken, _ := handler.GenerateToken(regular.ID)
	if _, err := handler.RequireAdmin(context.Background(), "auth_token="+regularToken); err == nil {
		t.Error("expected error for non-admin issuer")
	}

	adminToken, _ := handler.GenerateToken(admin.ID)
	issuerID, err := handler.RequireAdmin(context.Background(), "auth_token="+adminToken)
	if err != nil {
		t.Fatalf("RequireAdmin failed for admin: %v", err)
	}
	if issuerID != admin.ID {
		t.Errorf("expected issuer %d, got %d", admin.ID, issuerID)
	}
}
