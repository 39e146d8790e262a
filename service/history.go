package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adbdeck/models"
)

const defaultHistoryLimit = 50

// HistoryStore persists one record per finished job.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record inserts rec.
func (h *HistoryStore) Record(ctx context.Context, rec models.HistoryRecord) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO history (id, action_id, device_id, kind, message, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ActionID, rec.DeviceID, string(rec.Kind), rec.Message, rec.Error,
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record history %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns the newest records first. limit <= 0 selects a default.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, action_id, device_id, kind, message, error, started_at, finished_at
		FROM history ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.ActionID, &rec.DeviceID, &kind, &rec.Message, &rec.Error,
			&rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Kind = models.EnvelopeKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LabelCache remembers application labels per device so enrichment does
// not have to dump every package again.
type LabelCache struct {
	db  *sql.DB
	now func() time.Time
}

func NewLabelCache(db *sql.DB) *LabelCache {
	return &LabelCache{db: db, now: time.Now}
}

// Get returns the cached label of pkg on deviceID.
func (c *LabelCache) Get(ctx context.Context, deviceID, pkg string) (string, bool, error) {
	var label string
	err := c.db.QueryRowContext(ctx,
		`SELECT label FROM package_labels WHERE device_id = ? AND package = ?`,
		deviceID, pkg).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read label of %s: %w", pkg, err)
	}
	return label, true, nil
}

// Put stores or replaces a label.
func (c *LabelCache) Put(ctx context.Context, deviceID, pkg, label string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO package_labels (device_id, package, label, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id, package) DO UPDATE SET label = excluded.label, updated_at = excluded.updated_at`,
		deviceID, pkg, label, c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store label of %s: %w", pkg, err)
	}
	return nil
}
