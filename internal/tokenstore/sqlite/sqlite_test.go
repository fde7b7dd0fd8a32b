package sqlite

import (
	"context"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSetGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "sid-1", "token", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := db.Get(ctx, "sid-1", "token")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || got != "abc" {
		t.Errorf("Get() = (%q, %v), want (%q, true)", got, ok, "abc")
	}
}

func TestSet_Upserts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "sid-1", "token", "old"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := db.Set(ctx, "sid-1", "token", "new"); err != nil {
		t.Fatalf("Set() second write error = %v", err)
	}

	got, _, err := db.Get(ctx, "sid-1", "token")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "new" {
		t.Errorf("Get() = %q, want %q after upsert", got, "new")
	}
}

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)

	_, ok, err := db.Get(context.Background(), "sid-1", "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true for missing key")
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.Set(ctx, "sid-1", "token", "abc")
	if err := db.Delete(ctx, "sid-1", "token"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := db.Get(ctx, "sid-1", "token"); ok {
		t.Error("key still present after Delete")
	}

	// Deleting a missing key is not an error.
	if err := db.Delete(ctx, "sid-1", "token"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestDeleteAll_ScopedToSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.Set(ctx, "sid-1", "token", "a")
	db.Set(ctx, "sid-1", "refreshToken", "r")
	db.Set(ctx, "sid-2", "token", "b")

	if err := db.DeleteAll(ctx, "sid-1"); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	if _, ok, _ := db.Get(ctx, "sid-1", "token"); ok {
		t.Error("sid-1 token should be gone")
	}
	if _, ok, _ := db.Get(ctx, "sid-1", "refreshToken"); ok {
		t.Error("sid-1 refreshToken should be gone")
	}
	if got, ok, _ := db.Get(ctx, "sid-2", "token"); !ok || got != "b" {
		t.Errorf("sid-2 token = (%q, %v), want untouched (%q, true)", got, ok, "b")
	}
}
