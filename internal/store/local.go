package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/walletsync/internal/domain"
)

// LoadLocal returns this device's wallet document. First run (no stored
// snapshot) constructs and persists the default document: one book with
// default accounts and categories, one profile. Older documents are
// upgraded through the domain migration chain and the upgraded form is
// written back so the migration runs once.
func (s *Store) LoadLocal(ctx context.Context, ids domain.IDSource) (domain.GlobalData, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM snapshot WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		d := domain.DefaultData(ids)
		if err := s.SaveLocal(ctx, d); err != nil {
			return domain.GlobalData{}, fmt.Errorf("persist first-run snapshot: %w", err)
		}
		return d, nil
	}
	if err != nil {
		return domain.GlobalData{}, fmt.Errorf("read snapshot: %w", err)
	}

	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	_ = json.Unmarshal([]byte(raw), &probe)

	d, err := domain.Decode([]byte(raw), ids)
	if err != nil {
		return domain.GlobalData{}, fmt.Errorf("snapshot: %w", err)
	}
	if probe.SchemaVersion != d.SchemaVersion {
		// Migrated on load: write the upgraded form back.
		if err := s.SaveLocal(ctx, d); err != nil {
			return domain.GlobalData{}, fmt.Errorf("persist migrated snapshot: %w", err)
		}
	}
	return d, nil
}

// SaveLocal replaces the local snapshot with the given document.
func (s *Store) SaveLocal(ctx context.Context, d domain.GlobalData) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshot (id, doc, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
