package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/db"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	store := NewSQLite(conn)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestSQLiteUpsertKeepsPoints(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	p, created, err := store.UpsertParticipant(ctx, 42, "Алия")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created || p.Name != "Алия" || p.Points != 0 || p.LastCheckin != nil {
		t.Fatalf("unexpected participant after first upsert: %+v created=%v", p, created)
	}

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	if err := store.UpdatePoints(ctx, 42, 20, day); err != nil {
		t.Fatalf("update points: %v", err)
	}

	p, created, err = store.UpsertParticipant(ctx, 42, "Aliya")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("second upsert must not report creation")
	}
	if p.Name != "Aliya" || p.Points != 20 {
		t.Fatalf("expected renamed participant with 20 points, got %+v", p)
	}
	if p.LastCheckin == nil || !p.LastCheckin.Equal(day) {
		t.Fatalf("expected last check-in %v, got %v", day, p.LastCheckin)
	}

	p, _, err = store.UpsertParticipant(ctx, 42, "")
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if p.Name != "Aliya" {
		t.Fatalf("empty name must not overwrite, got %q", p.Name)
	}
}

func TestSQLiteGetAndUpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	if _, err := store.GetParticipant(ctx, 7); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdatePoints(ctx, 7, 20, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestSQLiteListParticipantIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	for _, id := range []int64{30, 10, 20} {
		if _, _, err := store.UpsertParticipant(ctx, id, "u"); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}
	ids, err := store.ListParticipantIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 || ids[0] != 10 || ids[1] != 20 || ids[2] != 30 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSQLiteAdmins(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	if ok, err := store.IsAdmin(ctx, 1); err != nil || ok {
		t.Fatalf("expected no admin, got %v %v", ok, err)
	}
	for i := 0; i < 2; i++ {
		if err := store.AddAdmin(ctx, 1); err != nil {
			t.Fatalf("add admin (attempt %d): %v", i+1, err)
		}
	}
	if err := store.AddAdmin(ctx, 5); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if ok, err := store.IsAdmin(ctx, 1); err != nil || !ok {
		t.Fatalf("expected admin, got %v %v", ok, err)
	}
	admins, err := store.ListAdmins(ctx)
	if err != nil || len(admins) != 2 {
		t.Fatalf("expected 2 admins, got %v %v", admins, err)
	}
	if err := store.RemoveAdmin(ctx, 1); err != nil {
		t.Fatalf("remove admin: %v", err)
	}
	if ok, _ := store.IsAdmin(ctx, 1); ok {
		t.Fatal("admin must be removed")
	}
}
