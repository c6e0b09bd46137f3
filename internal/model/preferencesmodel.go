package model

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ PreferencesModel = (*customPreferencesModel)(nil)

const preferencesSchema = `CREATE TABLE IF NOT EXISTS public.preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type (
	// PreferencesModel is an interface to be customized, add more methods here,
	// and implement the added methods in customPreferencesModel.
	PreferencesModel interface {
		preferencesModel
		EnsureSchema(ctx context.Context) error
		Upsert(ctx context.Context, key, value string) error
	}

	customPreferencesModel struct {
		*defaultPreferencesModel
	}
)

// NewPreferencesModel returns a model for the database table.
func NewPreferencesModel(conn sqlx.SqlConn) PreferencesModel {
	return &customPreferencesModel{
		defaultPreferencesModel: newPreferencesModel(conn),
	}
}

// EnsureSchema creates the preferences table when missing.
func (m *customPreferencesModel) EnsureSchema(ctx context.Context) error {
	if _, err := m.conn.ExecCtx(ctx, preferencesSchema); err != nil {
		return fmt.Errorf("preferences.EnsureSchema: %w", err)
	}
	return nil
}

// Upsert writes value under key, replacing any previous value.
func (m *customPreferencesModel) Upsert(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`insert into %s (%s) values ($1, $2, $3)
on conflict (key) do update set value = excluded.value, updated_at = excluded.updated_at`,
		m.tableName(), preferencesRowsExpectAutoSet)
	if _, err := m.conn.ExecCtx(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("preferences.Upsert %s: %w", key, err)
	}
	return nil
}
