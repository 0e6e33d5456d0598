package conversation

import (
	"testing"
	"time"
)

func TestStoreExpiresStaleConversations(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(30 * time.Minute)
	s.now = func() time.Time { return now }

	s.Put(1, State{Action: ActionSetTarget, Step: 1})
	now = now.Add(29 * time.Minute)
	if _, ok := s.Get(1); !ok {
		t.Fatal("conversation must still be active")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := s.Get(1); ok {
		t.Fatal("conversation must expire")
	}
	if s.Len() != 0 {
		t.Fatal("expired conversation must be removed")
	}
}

func TestStorePutRefreshesDeadline(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	s.Put(1, State{Action: ActionBroadcastText, Step: 1})
	now = now.Add(8 * time.Minute)
	s.Put(1, State{Action: ActionBroadcastText, Step: 2})
	now = now.Add(8 * time.Minute)
	if st, ok := s.Get(1); !ok || st.Step != 2 {
		t.Fatalf("expected active step 2, got %+v %v", st, ok)
	}
}

func TestStoreWithoutTTL(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(0)
	s.now = func() time.Time { return now }
	s.Put(1, State{Action: ActionAssignAdmin, Step: 1})
	now = now.AddDate(1, 0, 0)
	if _, ok := s.Get(1); !ok {
		t.Fatal("conversation must not expire without ttl")
	}
	if !s.Delete(1) || s.Delete(1) {
		t.Fatal("delete must report presence once")
	}
}
