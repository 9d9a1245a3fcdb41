package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toastx/shredr-fun/internal/domain/blob"
	"github.com/toastx/shredr-fun/internal/port/cache"
	"github.com/toastx/shredr-fun/internal/port/database"
)

const blobNamespace = "blob"

// BlobService stores encrypted nonce blobs. Single-blob reads go through
// the cache; writes invalidate it.
type BlobService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewBlobService creates a BlobService.
func NewBlobService(store database.Store, c cache.Cache, ttl time.Duration) *BlobService {
	return &BlobService{store: store, cache: c, ttl: ttl, now: time.Now}
}

// Create validates and persists a new blob.
func (s *BlobService) Create(ctx context.Context, req blob.CreateRequest) (*blob.NonceBlob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b := &blob.NonceBlob{
		ID:            uuid.NewString(),
		EncryptedBlob: req.EncryptedBlob,
		CreatedAt:     s.now().UnixMilli(),
	}
	if err := s.store.CreateBlob(ctx, b); err != nil {
		return nil, err
	}
	s.remember(ctx, b)
	slog.InfoContext(ctx, "nonce blob created", "id", b.ID, "bytes", len(b.EncryptedBlob))
	return b, nil
}

// Get returns a blob by ID.
func (s *BlobService) Get(ctx context.Context, id string) (*blob.NonceBlob, error) {
	key := cache.Key(blobNamespace, id)
	if raw, found, err := s.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "blob cache get failed", "id", id, "error", err)
	} else if found {
		var b blob.NonceBlob
		if err := json.Unmarshal(raw, &b); err == nil {
			return &b, nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	b, err := s.store.GetBlob(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, b)
	return b, nil
}

// List returns blobs newest first.
func (s *BlobService) List(ctx context.Context, q blob.ListQuery) ([]blob.NonceBlob, error) {
	return s.store.ListBlobs(ctx, q.Normalize())
}

// Delete removes a blob and evicts it from the cache.
func (s *BlobService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteBlob(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cache.Key(blobNamespace, id)); err != nil {
		slog.WarnContext(ctx, "blob cache evict failed", "id", id, "error", err)
	}
	slog.InfoContext(ctx, "nonce blob deleted", "id", id)
	return nil
}

func (s *BlobService) remember(ctx context.Context, b *blob.NonceBlob) {
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.Key(blobNamespace, b.ID), raw, s.ttl); err != nil {
		slog.WarnContext(ctx, "blob cache set failed", "id", b.ID, "error", err)
	}
}
