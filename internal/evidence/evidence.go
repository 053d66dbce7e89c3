package evidence

import (
	"io"
	"path"
	"strconv"

	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// Store attaches uploaded evidence files to claim codes. Raw bytes live in
// the blob filesystem under <code>/<index>; the claim code only carries
// {path, mimeType} metadata rows. Blob errors propagate unchanged.
type Store struct {
	local afero.Fs // temp upload area the handlers write into
	blobs afero.Fs // external blob store
}

func NewStore(local, blobs afero.Fs) *Store {
	return &Store{local: local, blobs: blobs}
}

// Upload points at one local temp file awaiting attachment.
type Upload struct {
	Path string
	Type string
}

// Add persists each upload to the blob store and appends its metadata to the
// claim code, preserving upload order as evidence order.
func (s *Store) Add(db *gorm.DB, claim *models.ClaimCode, uploads []Upload) error {
	for _, up := range uploads {
		data, err := afero.ReadFile(s.local, up.Path)
		if err != nil {
			return err
		}

		dest := path.Join(claim.Code, strconv.Itoa(len(claim.Evidence)))
		if err := s.blobs.MkdirAll(claim.Code, 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(s.blobs, dest, data, 0o644); err != nil {
			return err
		}

		entry := models.Evidence{
			ClaimCodeID: claim.ID,
			Path:        dest,
			MimeType:    up.Type,
		}
		if err := db.Create(&entry).Error; err != nil {
			return err
		}
		claim.Evidence = append(claim.Evidence, entry)
	}
	return nil
}

// Open returns a read stream for one evidence entry.
func (s *Store) Open(entry *models.Evidence) (io.ReadCloser, error) {
	return s.blobs.Open(entry.Path)
}

// Destroy deletes every blob the claim code references and empties its
// evidence list.
func (s *Store) Destroy(db *gorm.DB, claim *models.ClaimCode) error {
	for i := range claim.Evidence {
		if err := s.blobs.Remove(claim.Evidence[i].Path); err != nil {
			return err
		}
	}
	if err := db.Unscoped().Where("claim_code_id = ?", claim.ID).Delete(&models.Evidence{}).Error; err != nil {
		return err
	}
	claim.Evidence = nil
	return nil
}
