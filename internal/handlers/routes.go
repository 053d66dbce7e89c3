package handlers

import (
	"net/http"

	"github.com/badgehub/badgehub-api/internal/auth"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(
	r *chi.Mux,
	authHandler *auth.AuthHandler,
	badgeHandler *BadgeHandler,
	claimHandler *ClaimHandler,
	assertionHandler *AssertionHandler,
	evidenceHandler *EvidenceHandler,
	apiKeyHandler *APIKeyHandler,
) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("BadgeHub API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	// Public badge surface: claim redemption, badge class JSON, assertions.
	huma.Post(api, "/claim", claimHandler.HandleRedeem)
	huma.Get(api, "/badge/{shortname}.json", badgeHandler.HandlePublicBadge)
	huma.Get(api, "/assertions/{hash}", assertionHandler.HandleGetAssertion)

	// Administrative surface.
	secured := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}
	huma.Get(api, "/me", authHandler.HandleMe, secured)

	huma.Post(api, "/badges", badgeHandler.HandleCreateBadge, secured)
	huma.Get(api, "/badges", badgeHandler.HandleListBadges, secured)
	huma.Get(api, "/badges/{shortname}", badgeHandler.HandleGetBadge, secured)
	huma.Delete(api, "/badges/{shortname}", badgeHandler.HandleDeleteBadge, secured)

	huma.Get(api, "/badges/{shortname}/codes", claimHandler.HandleListCodes, secured)
	huma.Post(api, "/badges/{shortname}/codes", claimHandler.HandleAddCodes, secured)
	huma.Post(api, "/badges/{shortname}/codes/generate", claimHandler.HandleGenerateCodes, secured)
	huma.Get(api, "/badges/{shortname}/codes/batches", claimHandler.HandleBatchNames, secured)
	huma.Delete(api, "/badges/{shortname}/codes/{code}", claimHandler.HandleRemoveCode, secured)
	huma.Post(api, "/badges/{shortname}/codes/{code}/release", claimHandler.HandleReleaseCode, secured)
	huma.Post(api, "/badges/{shortname}/reserve", claimHandler.HandleReserve, secured)
	huma.Get(api, "/codes", claimHandler.HandleAuditCodes, secured)

	huma.Post(api, "/credit", claimHandler.HandleCredit, secured)
	huma.Post(api, "/backfill", claimHandler.HandleBackfill, secured)

	huma.Get(api, "/recipients/{email}/badges", assertionHandler.HandleListAwards, secured)
	huma.Post(api, "/recipients/{email}/badges/seen", assertionHandler.HandleMarkSeen, secured)

	huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, secured)
	huma.Get(api, "/api-keys", apiKeyHandler.HandleList, secured)
	huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, secured)

	// Evidence is raw multipart/stream I/O, kept outside huma.
	r.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)
		r.Post("/badges/{shortname}/codes/{code}/evidence", evidenceHandler.HandleUpload)
		r.Get("/badges/{shortname}/codes/{code}/evidence/{index}", evidenceHandler.HandleDownload)
		r.Delete("/badges/{shortname}/codes/{code}/evidence", evidenceHandler.HandleDestroy)
	})
}
