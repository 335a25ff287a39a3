package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"referral-intake/domain"
)

// DiskResumeStore archives uploads under a directory using random names.
type DiskResumeStore struct {
	dir string
}

var _ domain.ResumeStore = (*DiskResumeStore)(nil)

// NewDiskResumeStore creates dir if needed.
func NewDiskResumeStore(dir string) (*DiskResumeStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &DiskResumeStore{dir: dir}, nil
}

// Save writes the upload as <uuid><ext> and returns its path.
func (s *DiskResumeStore) Save(ctx context.Context, file domain.ResumeFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.StorageError{Op: "save resume", Err: err}
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(file.Filename)))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", &domain.StorageError{Op: "save resume", Err: err}
	}
	return path, nil
}
