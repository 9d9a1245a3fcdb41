// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/toastx/shredr-fun/internal/domain/blob"
)

// Store is the port interface for database operations.
type Store interface {
	// Nonce blobs
	CreateBlob(ctx context.Context, b *blob.NonceBlob) error
	GetBlob(ctx context.Context, id string) (*blob.NonceBlob, error)
	ListBlobs(ctx context.Context, q blob.ListQuery) ([]blob.NonceBlob, error)
	DeleteBlob(ctx context.Context, id string) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
