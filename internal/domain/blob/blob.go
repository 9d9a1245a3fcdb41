// Package blob defines the NonceBlob entity: an opaque, client-encrypted
// record the frontend stores and later tries to decrypt.
package blob

import (
	"fmt"

	"github.com/toastx/shredr-fun/internal/domain"
)

// MaxSize is the largest accepted encrypted blob, in bytes of its encoded form.
const MaxSize = 2048

// List paging bounds.
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// NonceBlob is one stored blob. CreatedAt is Unix milliseconds.
type NonceBlob struct {
	ID            string `json:"id"`
	EncryptedBlob string `json:"encryptedBlob"`
	CreatedAt     int64  `json:"createdAt"`
}

// CreateRequest holds the fields needed to store a new blob.
type CreateRequest struct {
	EncryptedBlob string `json:"encryptedBlob"`
}

// Validate checks the blob is present and within MaxSize.
func (r CreateRequest) Validate() error {
	if r.EncryptedBlob == "" {
		return fmt.Errorf("%w: encryptedBlob is required", domain.ErrValidation)
	}
	if n := len(r.EncryptedBlob); n > MaxSize {
		return fmt.Errorf("%w: Blob too large: %d bytes (max %d bytes)", domain.ErrValidation, n, MaxSize)
	}
	return nil
}

// ListQuery pages through blobs, newest first.
type ListQuery struct {
	Limit  int
	Offset int
}

// DefaultListQuery is the query used when the caller gives no paging.
func DefaultListQuery() ListQuery {
	return ListQuery{Limit: DefaultLimit}
}

// Normalize clamps Limit into [1, MaxLimit] and Offset to at least zero.
// Callers apply DefaultLimit themselves when no limit was given.
func (q ListQuery) Normalize() ListQuery {
	q.Limit = min(max(q.Limit, 1), MaxLimit)
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
