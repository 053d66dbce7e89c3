package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/badgehub/badgehub-api/internal/claims"
	"github.com/badgehub/badgehub-api/internal/evidence"
	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// EvidenceHandler serves raw multipart uploads and byte streams, so it stays
// on plain chi routes rather than huma operations.
type EvidenceHandler struct {
	db    *gorm.DB
	store *evidence.Store
	local afero.Fs
}

func NewEvidenceHandler(db *gorm.DB, store *evidence.Store, local afero.Fs) *EvidenceHandler {
	return &EvidenceHandler{db: db, store: store, local: local}
}

func (h *EvidenceHandler) claimFromRequest(r *http.Request) (*models.Badge, *models.ClaimCode, error) {
	badge, err := claims.FindBadge(h.db, chi.URLParam(r, "shortname"))
	if err != nil {
		return nil, nil, err
	}
	code := chi.URLParam(r, "code")
	claim := badge.GetClaimCode(code)
	if claim == nil {
		return nil, nil, claims.ErrUnknownCode
	}
	if err := h.db.Preload("Evidence").First(claim, claim.ID).Error; err != nil {
		return nil, nil, err
	}
	return badge, claim, nil
}

// HandleUpload attaches each multipart file part to the claim code, staging
// the bytes in the local temp area before handing them to the blob store.
func (h *EvidenceHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	_, claim, err := h.claimFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "Expected multipart upload", http.StatusBadRequest)
		return
	}

	uploads := []evidence.Upload{}
	for i := 0; ; i++ {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "Failed to read upload", http.StatusBadRequest)
			return
		}
		if part.FileName() == "" {
			continue
		}

		tmpPath := fmt.Sprintf("upload-%s-%d", claim.Code, i)
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			http.Error(w, "Failed to read upload", http.StatusBadRequest)
			return
		}
		if err := afero.WriteFile(h.local, tmpPath, data, 0o600); err != nil {
			http.Error(w, "Failed to stage upload", http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, evidence.Upload{
			Path: tmpPath,
			Type: part.Header.Get("Content-Type"),
		})
	}

	if err := h.store.Add(h.db, claim, uploads); err != nil {
		http.Error(w, "Failed to store evidence: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, "%d evidence files attached", len(uploads))
}

// HandleDownload streams one evidence entry by index.
func (h *EvidenceHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	_, claim, err := h.claimFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(claim.Evidence) {
		http.Error(w, "Unknown evidence entry", http.StatusNotFound)
		return
	}
	entry := &claim.Evidence[index]

	stream, err := h.store.Open(entry)
	if err != nil {
		http.Error(w, "Failed to open evidence: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	if entry.MimeType != "" {
		w.Header().Set("Content-Type", entry.MimeType)
	}
	io.Copy(w, stream)
}

// HandleDestroy removes all evidence attached to a claim code.
func (h *EvidenceHandler) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	_, claim, err := h.claimFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err := h.store.Destroy(h.db, claim); err != nil {
		http.Error(w, "Failed to destroy evidence: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
