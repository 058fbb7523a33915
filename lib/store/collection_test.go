package store

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestCollection(t *testing.T) {
	t.Run("InsertFind", func(t *testing.T) {
		clock := newTestClock()
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), clock), "users")

		doc := mustInsert(t, col, `{"name": "a", "age": 3}`, nil)
		if !doc.CreatedAt.Equal(clock.Now()) {
			t.Errorf("Expected created_at %v, got %v", clock.Now(), doc.CreatedAt)
		}
		if doc.CreatedAt.Location() != time.UTC {
			t.Errorf("Expected timestamps in UTC, got %v", doc.CreatedAt.Location())
		}

		found, ok, err := col.Find(doc.ID)
		if err != nil || !ok {
			t.Fatalf("Expected to find %s, ok=%v err=%v", doc.ID, ok, err)
		}
		if string(found.Data) != `{"name":"a","age":3}` {
			t.Errorf("Expected compacted data, got %s", found.Data)
		}

		// returned documents are copies
		found.Data[0] = 'X'
		again, _, _ := col.Find(doc.ID)
		if again.Data[0] == 'X' {
			t.Errorf("Find should return a copy, not a reference to the stored document")
		}

		_, ok, err = col.Find("nonexistent")
		if err != nil || ok {
			t.Errorf("Expected nonexistent id to return ok=false, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("InsertInvalidJSON", func(t *testing.T) {
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), nil), "users")

		for _, data := range []string{"", "   ", "{", `{"a":}`, "undefined"} {
			if _, err := col.Insert(json.RawMessage(data), nil); !errors.Is(err, ErrSerialization) {
				t.Errorf("Expected Serialization error for %q, got %v", data, err)
			}
		}
		if n, _ := col.Len(); n != 0 {
			t.Errorf("Expected no documents after failed inserts, got %d", n)
		}
	})

	t.Run("InsertWithTTL", func(t *testing.T) {
		clock := newTestClock()
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), clock), "sessions")

		doc := mustInsert(t, col, `{}`, ttl(60))
		if doc.ExpiresAt == nil || !doc.ExpiresAt.Equal(clock.Now().Add(time.Minute)) {
			t.Errorf("Expected expiry one minute from now, got %v", doc.ExpiresAt)
		}
		if doc.Expired(clock.Now()) {
			t.Errorf("Expected document not to be expired yet")
		}

		zero := mustInsert(t, col, `{}`, ttl(0))
		if !zero.Expired(clock.Now()) {
			t.Errorf("Expected ttl 0 to produce an already expired document")
		}

		negative := mustInsert(t, col, `{}`, ttl(-10))
		if !negative.Expired(clock.Now()) {
			t.Errorf("Expected negative ttl to produce an already expired document")
		}

		// expired but not yet swept documents stay visible
		if _, ok, _ := col.Find(zero.ID); !ok {
			t.Errorf("Expected expired document to be visible until the next sweep")
		}

		huge := mustInsert(t, col, `{}`, ttl(math.MaxInt64))
		if huge.ExpiresAt == nil || !huge.ExpiresAt.After(clock.Now()) {
			t.Errorf("Expected huge ttl to saturate into the future, got %v", huge.ExpiresAt)
		}
	})

	t.Run("Update", func(t *testing.T) {
		clock := newTestClock()
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), clock), "users")

		doc := mustInsert(t, col, `{"v":1}`, ttl(3600))
		clock.Advance(5 * time.Second)

		updated, err := col.Update(doc.ID, json.RawMessage(`{"v":2}`))
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.ID != doc.ID || !updated.CreatedAt.Equal(doc.CreatedAt) {
			t.Errorf("Expected id and created_at to be unchanged")
		}
		if !updated.UpdatedAt.Equal(doc.UpdatedAt.Add(5 * time.Second)) {
			t.Errorf("Expected updated_at to advance by 5s, got %v", updated.UpdatedAt)
		}
		if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(*doc.ExpiresAt) {
			t.Errorf("Expected expiry to be unchanged, got %v", updated.ExpiresAt)
		}
		if string(updated.Data) != `{"v":2}` {
			t.Errorf("Expected data {\"v\":2}, got %s", updated.Data)
		}

		// a clock going backwards never moves updated_at before created_at
		clock.Advance(-time.Hour)
		updated, err = col.Update(doc.ID, json.RawMessage(`{"v":3}`))
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.UpdatedAt.Before(updated.CreatedAt) {
			t.Errorf("Expected updated_at >= created_at, got %v < %v", updated.UpdatedAt, updated.CreatedAt)
		}

		if _, err := col.Update("missing", json.RawMessage(`{}`)); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected NotFound for missing document, got %v", err)
		}
		if _, err := col.Update(doc.ID, json.RawMessage(`{`)); !errors.Is(err, ErrSerialization) {
			t.Errorf("Expected Serialization error for invalid payload, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), nil), "users")
		doc := mustInsert(t, col, `{}`, nil)

		if err := col.Delete(doc.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := col.Find(doc.ID); ok {
			t.Errorf("Expected document to be gone after delete")
		}
		if err := col.Delete(doc.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected NotFound on second delete, got %v", err)
		}
	})

	t.Run("FindAll", func(t *testing.T) {
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), nil), "users")

		all, err := col.FindAll()
		if err != nil || len(all) != 0 {
			t.Fatalf("Expected empty result, got %v err=%v", all, err)
		}

		want := map[string]bool{}
		for i := 0; i < 5; i++ {
			want[mustInsert(t, col, `{}`, nil).ID] = true
		}

		all, err = col.FindAll()
		if err != nil {
			t.Fatalf("FindAll failed: %v", err)
		}
		if len(all) != len(want) {
			t.Fatalf("Expected %d documents, got %d", len(want), len(all))
		}
		for _, doc := range all {
			if !want[doc.ID] {
				t.Errorf("Unexpected document %s", doc.ID)
			}
		}
	})

	t.Run("PersistFailureRollsBack", func(t *testing.T) {
		base := afero.NewMemMapFs()
		_ = afero.WriteFile(base, filepath.Join("data", "users.json"), []byte("{}"), 0o644)

		col := mustCollection(t, openMemDB(t, afero.NewReadOnlyFs(base), nil), "users")

		if _, err := col.Insert(json.RawMessage(`{}`), nil); !errors.Is(err, ErrIo) {
			t.Errorf("Expected Io error on read-only filesystem, got %v", err)
		}
		if n, _ := col.Len(); n != 0 {
			t.Errorf("Expected failed insert to be rolled back, got %d documents", n)
		}
		if col.Poisoned() {
			t.Errorf("Expected an io error not to poison the collection")
		}
	})

	t.Run("Poisoned", func(t *testing.T) {
		col := mustCollection(t, openMemDB(t, afero.NewMemMapFs(), nil), "users")
		doc := mustInsert(t, col, `{}`, nil)

		if err := col.write(func() error { panic("boom") }); !errors.Is(err, ErrLockPoisoned) {
			t.Fatalf("Expected LockPoisoned, got %v", err)
		}

		if _, err := col.Insert(json.RawMessage(`{}`), nil); !errors.Is(err, ErrLockPoisoned) {
			t.Errorf("Expected Insert on poisoned collection to fail, got %v", err)
		}
		if _, _, err := col.Find(doc.ID); !errors.Is(err, ErrLockPoisoned) {
			t.Errorf("Expected Find on poisoned collection to fail, got %v", err)
		}
		if err := col.Delete(doc.ID); CodeOf(err) != ErrCLockPoisoned {
			t.Errorf("Expected Delete on poisoned collection to fail, got %v", err)
		}
	})
}

func TestTTLDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    time.Duration
	}{
		{0, 0},
		{60, time.Minute},
		{-1, -time.Second},
		{math.MaxInt64, time.Duration(math.MaxInt64)},
		{math.MinInt64, time.Duration(math.MinInt64)},
	}
	for _, tt := range tests {
		if got := ttlDuration(tt.seconds); got != tt.want {
			t.Errorf("ttlDuration(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}
