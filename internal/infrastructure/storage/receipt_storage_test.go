package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveReadDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalReceiptStorage(dir, "", zap.NewNop())
	ctx := context.Background()

	url, err := s.SaveReceipt(ctx, "exp-123", "item-9", "Taxi Receipt.PDF", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Regexp(t, `^/receipts/exp-123/item-9-[0-9a-f]{12}-TaxiReceipt\.pdf$`, url)

	_, err = os.Stat(filepath.Join(dir, "exp-123", filepath.Base(url)))
	require.NoError(t, err)

	content, err := s.Read(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)

	require.NoError(t, s.Delete(ctx, url))
	require.NoError(t, s.Delete(ctx, url), "delete is idempotent")
	_, err = os.Stat(filepath.Join(dir, "exp-123"))
	assert.True(t, os.IsNotExist(err), "empty request folder is removed")

	_, err = s.Read(ctx, url)
	assert.Error(t, err)
}

func TestSaveKeepsEarlierUploadsOfSameName(t *testing.T) {
	s := NewLocalReceiptStorage(t.TempDir(), "", zap.NewNop())
	ctx := context.Background()

	first, err := s.SaveReceipt(ctx, "exp-1", "item-1", "taxi.pdf", []byte("first"))
	require.NoError(t, err)
	second, err := s.SaveReceipt(ctx, "exp-1", "item-1", "taxi.pdf", []byte("second"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	content, err := s.Read(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), content)

	require.NoError(t, s.Delete(ctx, second))
	content, err = s.Read(ctx, first)
	require.NoError(t, err, "deleting one upload leaves the other")
	assert.Equal(t, []byte("first"), content)
}

func TestSanitizesTraversal(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalReceiptStorage(dir, "/files", zap.NewNop())
	ctx := context.Background()

	url, err := s.SaveReceipt(ctx, "../../etc", "item-1", "../../passwd", []byte("x"))
	require.NoError(t, err)
	assert.True(t, regexp.MustCompile(`^/files/etc/item-1-[0-9a-f]{12}-passwd$`).MatchString(url), url)

	_, err = s.SaveReceipt(ctx, "..", "item-1", "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestRejectsForeignURLs(t *testing.T) {
	s := NewLocalReceiptStorage(t.TempDir(), "", zap.NewNop())
	ctx := context.Background()

	tests := []string{
		"/other/exp-1/a.pdf",
		"/receipts/../../etc/passwd",
		"/receipts/",
		"https://example.com/receipts/a.pdf",
	}
	for _, url := range tests {
		_, err := s.Read(ctx, url)
		assert.ErrorIs(t, err, ErrInvalidPath, url)
		assert.ErrorIs(t, s.Delete(ctx, url), ErrInvalidPath, url)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"invoice.pdf", "invoice.pdf"},
		{"Photo 2025-03-01.JPEG", "Photo2025-03-01.jpeg"},
		{"C:\\Users\\ana\\scan.png", "scan.png"},
		{"no-extension", "no-extension"},
		{"...", "receipt"},
		{"", "receipt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
