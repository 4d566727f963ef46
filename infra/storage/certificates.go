package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mstgnz/gocips/infra/validate"
	"github.com/mstgnz/gocips/provider"
)

// CertificateStore keeps creditor certificate bundles as files in one directory
type CertificateStore struct {
	dir string
}

// NewCertificateStore creates the directory if needed
func NewCertificateStore(dir string) (*CertificateStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create certificate directory %s: %w", dir, err)
	}
	return &CertificateStore{dir: dir}, nil
}

// Dir returns the directory holding the bundles
func (s *CertificateStore) Dir() string {
	return s.dir
}

// ReferenceFor returns the file name used for the bundle of a tenant
func ReferenceFor(tenantID string) string {
	return fmt.Sprintf("CREDITOR_%s.pfx", tenantID)
}

// Save writes the bundle of a tenant and returns its reference. An existing
// bundle is replaced atomically: readers see either the old or the new file.
func (s *CertificateStore) Save(tenantID string, data []byte) (string, error) {
	if !validate.IsSelector(tenantID) {
		return "", provider.Errorf(provider.KindInvalidConfig, "invalid tenant id %q", tenantID)
	}
	if len(data) == 0 {
		return "", provider.Errorf(provider.KindInvalidCertificate, "certificate file is empty")
	}

	reference := ReferenceFor(tenantID)
	tmpPath := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", reference, uuid.NewString()))

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary certificate file: %w", err)
	}

	if err := writeAndSync(tmp, data); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, reference)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to replace certificate file: %w", err)
	}

	return reference, nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write certificate file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync certificate file: %w", err)
	}
	return f.Close()
}

// Load returns the bundle behind reference
func (s *CertificateStore) Load(reference string) ([]byte, error) {
	path, err := s.resolve(reference)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, provider.Errorf(provider.KindCertificateNotFound, "certificate file %s does not exist", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}
	return data, nil
}

// Remove deletes the bundle behind reference; a missing file is not an error
func (s *CertificateStore) Remove(reference string) error {
	path, err := s.resolve(reference)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove certificate file: %w", err)
	}
	return nil
}

// resolve confines references to the store directory
func (s *CertificateStore) resolve(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", provider.Errorf(provider.KindCertificateNotFound, "no certificate uploaded")
	}
	if reference != filepath.Base(reference) || strings.HasPrefix(reference, ".") {
		return "", provider.Errorf(provider.KindInvalidConfig, "invalid certificate reference %q", reference)
	}
	return filepath.Join(s.dir, reference), nil
}
