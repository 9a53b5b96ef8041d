package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/tallybot/internal/entity"
)

// setupTestDB connects to TEST_DATABASE_URL, or skips when it is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	database, err := New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(database.Close)
	if err := database.RunMigrations(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestEntityLifecycle(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	id := "poll-" + uuid.NewString()

	e := entity.Entity{
		ID:        id,
		Kind:      entity.KindPoll,
		CreatedAt: time.Now().UTC(),
		Poll:      &entity.Poll{Choices: []entity.Choice{{ID: "a"}, {ID: "b"}}},
	}
	if err := database.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := database.Create(ctx, e); !errors.Is(err, entity.ErrDuplicate) {
		t.Fatalf("duplicate Create error = %v, want ErrDuplicate", err)
	}

	got, err := database.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Poll.Choices[1].Voters = []string{"u1"}
	if err := database.Commit(ctx, id, 1, got); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := database.Commit(ctx, id, 1, got); !errors.Is(err, entity.ErrVersionConflict) {
		t.Fatalf("stale Commit error = %v, want ErrVersionConflict", err)
	}

	after, err := database.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Version != 2 || len(after.Poll.Choices[1].Voters) != 1 {
		t.Fatalf("unexpected stored entity: %+v", after)
	}

	if _, err := database.Get(ctx, "missing-"+uuid.NewString()); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Get missing error = %v, want ErrNotFound", err)
	}
}

func TestCouponCodeUnique(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	code := "CODE-" + uuid.NewString()

	first := entity.Entity{ID: uuid.NewString(), Kind: entity.KindCoupon, Coupon: &entity.Coupon{Code: code, DiscountPercent: 5}}
	second := entity.Entity{ID: uuid.NewString(), Kind: entity.KindCoupon, Coupon: &entity.Coupon{Code: code, DiscountPercent: 5}}

	if err := database.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := database.Create(ctx, second); !errors.Is(err, entity.ErrDuplicate) {
		t.Fatalf("Create same code error = %v, want ErrDuplicate", err)
	}
}
