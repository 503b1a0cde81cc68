package widgets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sendrec/vidwidget/internal/database"
	"github.com/sendrec/vidwidget/internal/widget"
)

var ErrNotFound = errors.New("widget not found")

type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Get loads a stored configuration with defaults applied.
func (r *Repository) Get(ctx context.Context, id string) (widget.Config, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, "SELECT config FROM widgets WHERE id = $1", id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return widget.Config{}, ErrNotFound
		}
		return widget.Config{}, fmt.Errorf("query widget %q: %w", id, err)
	}
	cfg, err := widget.LoadConfig(bytes.NewReader(raw))
	if err != nil {
		return widget.Config{}, fmt.Errorf("widget %q: %w", id, err)
	}
	return cfg, nil
}

func (r *Repository) Put(ctx context.Context, id string, cfg widget.Config) (bool, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode widget %q: %w", id, err)
	}
	var created bool
	err = r.db.QueryRow(ctx,
		`INSERT INTO widgets (id, config) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, updated_at = now()
		 RETURNING (xmax = 0)`,
		id, raw,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert widget %q: %w", id, err)
	}
	return created, nil
}

// Exists is used by the session and event handlers to reject unknown widgets.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM widgets WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check widget %q: %w", id, err)
	}
	return exists, nil
}
