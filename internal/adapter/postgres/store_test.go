package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toastx/shredr-fun/internal/adapter/postgres"
	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/blob"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func newBlob(t *testing.T, store *postgres.Store, payload string, createdAt int64) *blob.NonceBlob {
	t.Helper()
	b := &blob.NonceBlob{ID: uuid.NewString(), EncryptedBlob: payload, CreatedAt: createdAt}
	if err := store.CreateBlob(context.Background(), b); err != nil {
		t.Fatalf("CreateBlob: %v", err)
	}
	t.Cleanup(func() { _ = store.DeleteBlob(context.Background(), b.ID) })
	return b
}

func TestStore_BlobCRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := newBlob(t, store, "c2VjcmV0", time.Now().UnixMilli())

	got, err := store.GetBlob(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if *got != *created {
		t.Fatalf("GetBlob = %+v, want %+v", got, created)
	}

	if err := store.CreateBlob(ctx, created); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate CreateBlob: expected ErrConflict, got %v", err)
	}

	if err := store.DeleteBlob(ctx, created.ID); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if _, err := store.GetBlob(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetBlob after delete: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteBlob(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second DeleteBlob: expected ErrNotFound, got %v", err)
	}
}

func TestStore_InvalidID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.GetBlob(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetBlob: expected ErrValidation, got %v", err)
	}
	if err := store.DeleteBlob(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("DeleteBlob: expected ErrValidation, got %v", err)
	}
	if err := store.CreateBlob(ctx, &blob.NonceBlob{ID: "nope", EncryptedBlob: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("CreateBlob: expected ErrValidation, got %v", err)
	}
}

func TestStore_ListBlobsNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// Far-future timestamps keep these rows ahead of anything else in the table.
	base := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	oldest := newBlob(t, store, "a", base)
	middle := newBlob(t, store, "b", base+1)
	newest := newBlob(t, store, "c", base+2)

	tests := []struct {
		name string
		q    blob.ListQuery
		want []string
	}{
		{"first page", blob.ListQuery{Limit: 2}, []string{newest.ID, middle.ID}},
		{"offset", blob.ListQuery{Limit: 2, Offset: 1}, []string{middle.ID, oldest.ID}},
		{"single", blob.ListQuery{Limit: 1, Offset: 2}, []string{oldest.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListBlobs(ctx, tt.q)
			if err != nil {
				t.Fatalf("ListBlobs: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStore_SizeConstraint(t *testing.T) {
	store := setupStore(t)

	b := &blob.NonceBlob{ID: uuid.NewString(), EncryptedBlob: strings.Repeat("x", blob.MaxSize+1), CreatedAt: 1}
	err := store.CreateBlob(context.Background(), b)
	if err == nil {
		_ = store.DeleteBlob(context.Background(), b.ID)
		t.Fatal("expected check constraint violation")
	}
	if errors.Is(err, domain.ErrConflict) {
		t.Fatalf("size violation reported as conflict: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}
	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
}
