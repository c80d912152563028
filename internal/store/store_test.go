package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/walletsync/internal/domain"
)

func testIDs() domain.IDSource {
	return domain.UUIDSource{}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"snapshot", "wallets", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestLoadLocal_FirstRunSeedsDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	d, err := s.LoadLocal(context.Background(), testIDs())
	if err != nil {
		t.Fatalf("LoadLocal() failed: %v", err)
	}
	if len(d.Books) != 1 {
		t.Fatalf("expected 1 default book, got %d", len(d.Books))
	}
	if d.ActiveBookID != d.Books[0].ID {
		t.Errorf("activeBookId %q does not resolve to the default book %q", d.ActiveBookID, d.Books[0].ID)
	}
	if d.SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("schemaVersion = %d, want %d", d.SchemaVersion, domain.CurrentSchemaVersion)
	}

	// The seeded document must be readable on the next load.
	d2, err := s.LoadLocal(context.Background(), testIDs())
	if err != nil {
		t.Fatalf("second LoadLocal() failed: %v", err)
	}
	if d2.Books[0].ID != d.Books[0].ID {
		t.Errorf("seeded book not persisted: %q vs %q", d2.Books[0].ID, d.Books[0].ID)
	}
}

func TestSaveLocal_Roundtrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	d, err := s.LoadLocal(ctx, testIDs())
	if err != nil {
		t.Fatalf("LoadLocal() failed: %v", err)
	}

	d.Books[0].Name = "Household"
	if err := s.SaveLocal(ctx, d); err != nil {
		t.Fatalf("SaveLocal() failed: %v", err)
	}

	got, err := s.LoadLocal(ctx, testIDs())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.Books[0].Name != "Household" {
		t.Errorf("book name = %q, want %q", got.Books[0].Name, "Household")
	}
}

func TestLoadLocal_MigratesOldDocument(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	// Simulate a pre-versioning snapshot written by an older build.
	old := `{"books":[{"id":"b1","name":"Legacy","currency":"$","transactions":[],"accounts":[],"categories":[]}],"activeBookId":"b1"}`
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshot (id, doc, updated_at) VALUES (1, ?, ?)`,
		old, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seed old snapshot: %v", err)
	}

	d, err := s.LoadLocal(ctx, testIDs())
	if err != nil {
		t.Fatalf("LoadLocal() failed: %v", err)
	}
	if d.SchemaVersion != domain.CurrentSchemaVersion {
		t.Fatalf("schemaVersion = %d, want %d", d.SchemaVersion, domain.CurrentSchemaVersion)
	}
	if d.DeviceID == "" {
		t.Error("migration did not assign a device id")
	}

	// The upgraded form must have been written back.
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT doc FROM snapshot WHERE id = 1`).Scan(&raw); err != nil {
		t.Fatalf("read stored snapshot: %v", err)
	}
	stored, err := domain.Decode([]byte(raw), testIDs())
	if err != nil {
		t.Fatalf("decode stored snapshot: %v", err)
	}
	if stored.SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("stored schemaVersion = %d, want %d", stored.SchemaVersion, domain.CurrentSchemaVersion)
	}
}

func TestWallets_ExistsAndPush(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	ok, err := s.Exists(ctx, "fam1")
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if ok {
		t.Error("Exists() = true for a wallet never pushed")
	}

	d := domain.DefaultData(testIDs())
	if err := s.Push(ctx, "fam1", d); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	ok, err = s.Exists(ctx, "fam1")
	if err != nil {
		t.Fatalf("Exists() after push failed: %v", err)
	}
	if !ok {
		t.Error("Exists() = false after push")
	}
}

func TestWallets_PushBumpsRevision(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	d := domain.DefaultData(testIDs())
	if err := s.Push(ctx, "fam1", d); err != nil {
		t.Fatalf("first Push() failed: %v", err)
	}
	_, rev1, err := s.Get(ctx, "fam1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	d.Books[0].Name = "Updated"
	if err := s.Push(ctx, "fam1", d); err != nil {
		t.Fatalf("second Push() failed: %v", err)
	}
	got, rev2, err := s.Get(ctx, "fam1")
	if err != nil {
		t.Fatalf("Get() after second push failed: %v", err)
	}

	if rev2 <= rev1 {
		t.Errorf("revision not bumped: %d -> %d", rev1, rev2)
	}
	if got.Books[0].Name != "Updated" {
		t.Errorf("book name = %q, want %q", got.Books[0].Name, "Updated")
	}
}

func TestWallets_SubscribeDeliversOnChange(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "wallet.db"), WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	updates := make(chan domain.GlobalData, 4)
	cancel, err := s.Subscribe(ctx, "fam1", func(d domain.GlobalData) {
		updates <- d
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer cancel()

	d := domain.DefaultData(testIDs())
	d.Books[0].Name = "Shared"
	if err := s.Push(ctx, "fam1", d); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	select {
	case got := <-updates:
		if got.Books[0].Name != "Shared" {
			t.Errorf("delivered book name = %q, want %q", got.Books[0].Name, "Shared")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered after push")
	}

	// An unchanged document must not be redelivered.
	select {
	case <-updates:
		t.Error("update redelivered without a push")
	case <-time.After(100 * time.Millisecond):
	}

	// Cancel is idempotent.
	cancel()
	cancel()
}
