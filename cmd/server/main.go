package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/badgehub/badgehub-api/internal/assertion"
	"github.com/badgehub/badgehub-api/internal/auth"
	"github.com/badgehub/badgehub-api/internal/award"
	"github.com/badgehub/badgehub-api/internal/claims"
	"github.com/badgehub/badgehub-api/internal/config"
	"github.com/badgehub/badgehub-api/internal/database"
	"github.com/badgehub/badgehub-api/internal/evidence"
	"github.com/badgehub/badgehub-api/internal/handlers"
	"github.com/badgehub/badgehub-api/internal/notifier"
	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Discord notifier (optional; flows degrade to no notifications)
	var discordNotifier notifier.Notifier
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			discordNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
		}
	}

	// Core services
	signer := assertion.NewSigner(cfg.JWTSecret, cfg.AssertionSalt, cfg.BaseURL)
	engine := award.NewEngine(db, signer, discordNotifier)
	claimService := claims.NewService(db, signer, discordNotifier)

	// Uploads stage in memory; stored evidence lives under the evidence dir.
	localFs := afero.NewMemMapFs()
	blobFs := afero.NewBasePathFs(afero.NewOsFs(), cfg.EvidenceDir)
	evidenceStore := evidence.NewStore(localFs, blobFs)

	// Handlers
	authHandler := auth.NewAuthHandler(cfg, db)
	badgeHandler := handlers.NewBadgeHandler(db, signer, authHandler)
	claimHandler := handlers.NewClaimHandler(db, claimService, engine, authHandler, cfg.ClaimCodeLimit)
	assertionHandler := handlers.NewAssertionHandler(db, authHandler)
	evidenceHandler := handlers.NewEvidenceHandler(db, evidenceStore, localFs)
	apiKeyHandler := handlers.NewAPIKeyHandler(db, authHandler)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, badgeHandler, claimHandler, assertionHandler, evidenceHandler, apiKeyHandler)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
