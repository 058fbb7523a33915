package store

import (
	"sort"
	"testing"
	"time"
)

func TestExpiryIndex(t *testing.T) {
	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	t.Run("AddPeek", func(t *testing.T) {
		idx := newExpiryIndex()
		idx.add("a", at(100))
		idx.add("b", at(200))
		idx.add("c", at(50))

		if idx.Len() != 3 {
			t.Errorf("Index should have 3 entries, but has %d", idx.Len())
		}
		for _, id := range []string{"a", "b", "c"} {
			if !idx.contains(id) {
				t.Errorf("Index should contain %s", id)
			}
		}

		e, ok := idx.peek()
		if !ok || e.id != "c" {
			t.Fatalf("Expected c to expire first, got %+v", e)
		}

		// updating moves the entry
		idx.add("c", at(300))
		if e, _ := idx.peek(); e.id != "a" {
			t.Errorf("Expected a to expire first after update, got %s", e.id)
		}
		if idx.Len() != 3 {
			t.Errorf("Update should not add an entry, got %d", idx.Len())
		}
	})

	t.Run("Remove", func(t *testing.T) {
		idx := newExpiryIndex()
		idx.add("a", at(100))
		idx.add("b", at(200))

		if !idx.remove("a") {
			t.Errorf("Expected a to be removed")
		}
		if idx.remove("a") {
			t.Errorf("Expected second remove of a to report false")
		}
		if idx.contains("a") || idx.Len() != 1 {
			t.Errorf("Expected only b to remain, got %d entries", idx.Len())
		}
	})

	t.Run("PopExpired", func(t *testing.T) {
		idx := newExpiryIndex()
		for i, id := range []string{"e", "d", "c", "b", "a"} {
			idx.add(id, at(i*10))
		}

		if ids := idx.popExpired(at(-1)); len(ids) != 0 {
			t.Errorf("Expected nothing to expire, got %v", ids)
		}

		// inclusive bound
		ids := idx.popExpired(at(20))
		sort.Strings(ids)
		if len(ids) != 3 || ids[0] != "c" || ids[1] != "d" || ids[2] != "e" {
			t.Errorf("Expected [c d e], got %v", ids)
		}
		if idx.Len() != 2 || idx.contains("e") {
			t.Errorf("Expected expired entries to be removed, got %d entries", idx.Len())
		}

		if ids := idx.popExpired(at(1000)); len(ids) != 2 {
			t.Errorf("Expected the rest to expire, got %v", ids)
		}
		if _, ok := idx.peek(); ok {
			t.Errorf("Expected empty index")
		}
	})

	t.Run("FromDocuments", func(t *testing.T) {
		exp1, exp2 := at(10), at(5)
		idx := newExpiryIndexFrom(map[string]Document{
			"a": {ID: "a", ExpiresAt: &exp1},
			"b": {ID: "b"},
			"c": {ID: "c", ExpiresAt: &exp2},
		})

		if idx.Len() != 2 || idx.contains("b") {
			t.Errorf("Expected only documents with an expiry, got %d entries", idx.Len())
		}
		if e, _ := idx.peek(); e.id != "c" {
			t.Errorf("Expected c to expire first, got %s", e.id)
		}
	})
}
