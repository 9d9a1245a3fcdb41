package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/blob"
	"github.com/toastx/shredr-fun/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Nonce blobs ---

const blobColumns = `id, encrypted_blob, created_at`

func scanBlob(row scannable) (blob.NonceBlob, error) {
	var (
		b  blob.NonceBlob
		id uuid.UUID
	)
	if err := row.Scan(&id, &b.EncryptedBlob, &b.CreatedAt); err != nil {
		return blob.NonceBlob{}, err
	}
	b.ID = id.String()
	return b, nil
}

// CreateBlob inserts b. The caller assigns ID and CreatedAt.
func (s *Store) CreateBlob(ctx context.Context, b *blob.NonceBlob) error {
	id, err := parseID(b.ID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO nonce_blobs (`+blobColumns+`) VALUES ($1, $2, $3)`,
		id, b.EncryptedBlob, b.CreatedAt)
	if uniqueViolation(err) {
		return fmt.Errorf("create blob %s: %w", b.ID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	return nil
}

// GetBlob returns one blob or domain.ErrNotFound.
func (s *Store) GetBlob(ctx context.Context, id string) (*blob.NonceBlob, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	b, err := scanBlob(s.pool.QueryRow(ctx,
		`SELECT `+blobColumns+` FROM nonce_blobs WHERE id = $1`, uid))
	if err != nil {
		return nil, notFoundWrap(err, "get blob %s", id)
	}
	return &b, nil
}

// ListBlobs returns a page of blobs, newest first.
func (s *Store) ListBlobs(ctx context.Context, q blob.ListQuery) ([]blob.NonceBlob, error) {
	q = q.Normalize()
	rows, err := s.pool.Query(ctx,
		`SELECT `+blobColumns+` FROM nonce_blobs ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()

	var out []blob.NonceBlob
	for rows.Next() {
		b, err := scanBlob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blob: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return orEmpty(out), nil
}

// DeleteBlob removes one blob or returns domain.ErrNotFound.
func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM nonce_blobs WHERE id = $1`, uid)
	return execExpectOne(tag, err, "delete blob %s", id)
}
