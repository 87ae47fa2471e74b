package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clipmark/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "state", "clipmark.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	id, err := s.OpenSession(ctx, started, "start-record")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}

	sessions, err := s.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || !sessions[0].Open() {
		t.Fatalf("sessions = %+v", sessions)
	}
	if !sessions[0].StartedAt.Equal(started) {
		t.Errorf("started = %v, want %v", sessions[0].StartedAt, started)
	}

	ended := started.Add(3 * time.Minute)
	if err := s.CloseSession(ctx, id, ended, "toggle-record", false); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if err := s.SetSessionVideo(ctx, id, "/videos/battle.mkv"); err != nil {
		t.Fatalf("SetSessionVideo: %v", err)
	}

	sessions, err = s.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions after close: %v", err)
	}
	got := sessions[0]
	if got.Open() || !got.EndedAt.Equal(ended) {
		t.Errorf("ended = %v, open = %v", got.EndedAt, got.Open())
	}
	if got.StopMethod != "toggle-record" || got.VideoPath != "/videos/battle.mkv" {
		t.Errorf("session = %+v", got)
	}
}

func TestCloseUnknownSession(t *testing.T) {
	s := openStore(t)
	if err := s.CloseSession(context.Background(), "nope", time.Now(), "", false); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestSessionsNewestFirstWithLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := s.OpenSession(ctx, base.Add(time.Duration(i)*time.Hour), "start-record"); err != nil {
			t.Fatalf("OpenSession %d: %v", i, err)
		}
	}

	sessions, err := s.Sessions(ctx, 2)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if !sessions[0].StartedAt.After(sessions[1].StartedAt) {
		t.Errorf("not newest-first: %v then %v", sessions[0].StartedAt, sessions[1].StartedAt)
	}
}

func TestAssociations(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, result := range []string{"win", "lose"} {
		_, err := s.RecordAssociation(ctx, store.Association{
			Image:     "img.png",
			Result:    result,
			Season:    "S13",
			Synthetic: i == 1,
			PairedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordAssociation %d: %v", i, err)
		}
	}

	got, err := s.Associations(ctx, 0)
	if err != nil {
		t.Fatalf("Associations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 associations, got %d", len(got))
	}
	if got[0].Result != "lose" || !got[0].Synthetic {
		t.Errorf("newest = %+v", got[0])
	}
	if got[1].Result != "win" || got[1].Synthetic {
		t.Errorf("oldest = %+v", got[1])
	}
	if !got[0].PairedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("paired_at = %v", got[0].PairedAt)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipmark.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s.OpenSession(context.Background(), time.Now(), "start-record"); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	sessions, err := s2.Sessions(context.Background(), 0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected persisted session, got %d", len(sessions))
	}
}
