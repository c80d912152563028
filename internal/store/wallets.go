package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/walletsync/internal/domain"
)

// ErrWalletNotFound reports a wallet id with no stored document.
var ErrWalletNotFound = errors.New("store: wallet not found")

// Exists reports whether a shared document is stored under the wallet id.
func (s *Store) Exists(ctx context.Context, walletID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM wallets WHERE id = ?`, walletID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check wallet %s: %w", walletID, err)
	}
	return true, nil
}

// Push upserts the full document under the wallet id, bumping the revision
// counter so subscribers notice the change.
func (s *Store) Push(ctx context.Context, walletID string, d domain.GlobalData) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode wallet %s: %w", walletID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, doc, rev, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc,
			rev = wallets.rev + 1,
			updated_at = excluded.updated_at
	`, walletID, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write wallet %s: %w", walletID, err)
	}
	return nil
}

// Get reads the current document and revision for a wallet id.
func (s *Store) Get(ctx context.Context, walletID string) (domain.GlobalData, int64, error) {
	var raw string
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT doc, rev FROM wallets WHERE id = ?`, walletID).Scan(&raw, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GlobalData{}, 0, ErrWalletNotFound
	}
	if err != nil {
		return domain.GlobalData{}, 0, fmt.Errorf("read wallet %s: %w", walletID, err)
	}
	d, err := domain.Decode([]byte(raw), domain.UUIDSource{})
	if err != nil {
		return domain.GlobalData{}, 0, fmt.Errorf("wallet %s: %w", walletID, err)
	}
	return d, rev, nil
}

// Subscribe polls the wallet's revision counter and delivers the full
// document on every change, including the initial state if the document
// already exists. Delivery is serial (one poll goroutine). The returned
// cancel function stops the poller and is idempotent.
//
// Poll errors are logged and the subscription continues; a missing
// document simply means nothing is delivered until the first push.
func (s *Store) Subscribe(ctx context.Context, walletID string, onUpdate func(domain.GlobalData)) (func(), error) {
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		var lastRev int64
		ticker := time.NewTicker(s.pollEach)
		defer ticker.Stop()
		for {
			d, rev, err := s.Get(ctx, walletID)
			if err != nil && !errors.Is(err, ErrWalletNotFound) {
				slog.Warn("wallet poll failed", "wallet", walletID, "error", err)
			} else if err == nil && rev != lastRev {
				lastRev = rev
				select {
				case <-done:
					return
				default:
				}
				onUpdate(d)
			}

			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return cancel, nil
}
