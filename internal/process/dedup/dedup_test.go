package dedup

import "testing"

func TestSet(t *testing.T) {
	s := NewSet("cryptonews_101", "cryptonews_102")

	if !s.Has("cryptonews_101") {
		t.Error("Has() = false for seeded id")
	}

	if s.Has("cryptonews_103") {
		t.Error("Has() = true for unknown id")
	}

	s.Add("cryptonews_103")

	if !s.Has("cryptonews_103") {
		t.Error("Has() = false after Add()")
	}

	if s.Len() != 3 {
		t.Errorf("Len() = %d, want %d", s.Len(), 3)
	}
}

func TestSetAddIsIdempotent(t *testing.T) {
	s := NewSet()

	s.Add("whalealerts_7")
	s.Add("whalealerts_7")

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want %d", s.Len(), 1)
	}
}

func TestNewSetEmpty(t *testing.T) {
	s := NewSet()

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want %d", s.Len(), 0)
	}

	if s.Has("anything") {
		t.Error("Has() = true on empty set")
	}
}
