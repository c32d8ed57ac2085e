package eval

import "testing"

func TestInFlightMap_InsertLookupRemove(t *testing.T) {
	// GIVEN an empty map
	m := NewInFlightMap()
	if !m.Empty() {
		t.Fatal("new map should be empty")
	}

	// WHEN a flit is inserted
	f := Flit{UniqueID: 7, Ingress: 0, Egress: 1, Head: true, Tail: true, CreatedAt: 5}
	m.Insert(f)

	// THEN it is findable and the map reports exactly one entry
	got, ok := m.Lookup(7)
	if !ok || got != f {
		t.Fatalf("Lookup(7) = %v, %v; want %v, true", got, ok, f)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	// WHEN removed
	if !m.Remove(7) {
		t.Error("Remove(7) should report true the first time")
	}

	// THEN it is gone and a second removal reports false
	if m.Remove(7) {
		t.Error("Remove(7) should report false the second time")
	}
	if !m.Empty() {
		t.Error("map should be empty after removing its only entry")
	}
}

func TestInFlightMap_LookupMissing(t *testing.T) {
	m := NewInFlightMap()
	if _, ok := m.Lookup(99); ok {
		t.Error("Lookup on missing id should report ok=false")
	}
}
