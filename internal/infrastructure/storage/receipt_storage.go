package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/port"
)

// DefaultURLPrefix is the URL path receipts are served under
const DefaultURLPrefix = "/receipts"

// ErrInvalidPath is returned for URLs or names that resolve outside the storage root
var ErrInvalidPath = errors.New("invalid receipt path")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// LocalReceiptStorage implements port.ReceiptStorage on the local filesystem.
// Files live in one folder per request: <baseDir>/<requestID>/<itemID>-<token>-<name>.<ext>
type LocalReceiptStorage struct {
	baseDir   string
	urlPrefix string
	logger    *zap.Logger
}

// NewLocalReceiptStorage creates a new LocalReceiptStorage
func NewLocalReceiptStorage(baseDir, urlPrefix string, logger *zap.Logger) *LocalReceiptStorage {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &LocalReceiptStorage{
		baseDir:   baseDir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		logger:    logger,
	}
}

// SaveReceipt writes content to a new file and returns its URL. Uploads never
// overwrite each other, even with the same line item and name.
func (s *LocalReceiptStorage) SaveReceipt(ctx context.Context, requestID, itemID, filename string, content []byte) (string, error) {
	folder := sanitizeName(requestID)
	item := sanitizeName(itemID)
	if folder == "" || item == "" {
		return "", fmt.Errorf("%w: empty request or item id", ErrInvalidPath)
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	rel := path.Join(folder, item+"-"+token+"-"+sanitizeFilename(filename))
	fullPath := s.fullPath(rel)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create receipt folder",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Receipt saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return s.urlPrefix + "/" + rel, nil
}

// Read returns the content behind a receipt URL
func (s *LocalReceiptStorage) Read(ctx context.Context, url string) ([]byte, error) {
	fullPath, err := s.resolve(url)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("receipt not found: %w", err)
		}
		s.logger.Error("Failed to read receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Delete removes a receipt. Deleting a missing file succeeds.
func (s *LocalReceiptStorage) Delete(ctx context.Context, url string) error {
	fullPath, err := s.resolve(url)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// drop the request folder once its last receipt is gone
	dir := filepath.Dir(fullPath)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
	return nil
}

func (s *LocalReceiptStorage) resolve(url string) (string, error) {
	if !strings.HasPrefix(url, s.urlPrefix+"/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, url)
	}
	fullPath := s.fullPath(strings.TrimPrefix(url, s.urlPrefix+"/"))
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (s *LocalReceiptStorage) fullPath(rel string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(rel))
}

// validatePath checks that the path stays strictly inside baseDir
func (s *LocalReceiptStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes base directory", ErrInvalidPath, fullPath)
	}
	return nil
}

// sanitizeName keeps only alphanumerics, hyphens and underscores
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	return unsafeChars.ReplaceAllString(name, "")
}

// sanitizeFilename keeps the extension of the uploaded name and cleans the rest
func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := sanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "receipt"
	}
	ext = "." + sanitizeName(strings.TrimPrefix(ext, "."))
	if ext == "." {
		return stem
	}
	return stem + ext
}

var _ port.ReceiptStorage = (*LocalReceiptStorage)(nil)
