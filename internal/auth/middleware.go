package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/badgehub/badgehub-api/internal/models"
)

type contextKey string

const IssuerIDKey contextKey = "issuer_id"

func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Check for API Key Header
		apiKey := r.Header.Get("X-API-KEY")
		if apiKey != "" {
			var keyModel models.APIKey
			if err := h.db.Where("key = ?", apiKey).First(&keyModel).Error; err == nil {
				if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
					http.Error(w, "Unauthorized: API Key expired", http.StatusUnauthorized)
					return
				}

				h.db.Model(&keyModel).Update("last_used_at", time.Now())

				ctx := context.WithValue(r.Context(), IssuerIDKey, keyModel.IssuerID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		// 2. Fallback to JWT Cookie
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			if err == http.ErrNoCookie {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		issuerID, expiry, err := h.parseToken(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		// Sliding session: refresh token if it's more than halfway through
		// its duration.
		if !expiry.IsZero() && time.Until(expiry) < TokenDuration/2 {
			newToken, err := h.GenerateToken(issuerID)
			if err == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     "auth_token",
					Value:    newToken,
					Expires:  time.Now().Add(TokenDuration),
					HttpOnly: true,
					Path:     "/",
				})
			}
		}

		ctx := context.WithValue(r.Context(), IssuerIDKey, issuerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
