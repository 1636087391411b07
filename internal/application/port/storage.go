package port

import "context"

// ReceiptStorage stores receipt files attached to line items
type ReceiptStorage interface {
	// SaveReceipt stores content under a fresh URL the UI uses to fetch it
	SaveReceipt(ctx context.Context, requestID, itemID, filename string, content []byte) (string, error)
	Read(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}
