package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ports/secondary"
)

const automationModeKey = "automation_mode"

// SettingsRepository implements secondary.SettingsStore with SQLite.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SQLite settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetAutomationMode returns the stored mode, ModeAuto when never set.
func (r *SettingsRepository) GetAutomationMode(ctx context.Context) (reorder.AutomationMode, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", automationModeKey).Scan(&value)
	if err == sql.ErrNoRows {
		return reorder.ModeAuto, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get automation mode: %w", err)
	}

	mode, err := reorder.ParseAutomationMode(value)
	if err != nil {
		return "", fmt.Errorf("stored automation mode is invalid: %w", err)
	}
	return mode, nil
}

// SetAutomationMode stores the mode.
func (r *SettingsRepository) SetAutomationMode(ctx context.Context, mode reorder.AutomationMode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		automationModeKey, string(mode),
	)
	if err != nil {
		return fmt.Errorf("failed to set automation mode: %w", err)
	}
	return nil
}

var _ secondary.SettingsStore = (*SettingsRepository)(nil)
