package optionsets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sendrec/vidwidget/internal/database"
	"github.com/sendrec/vidwidget/internal/widget"
)

var ErrNotFound = errors.New("option set not found")

// Summary is one row of the administrative listing.
type Summary struct {
	ID        string    `json:"id"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository persists option sets as JSONB arrays keyed by set id.
type Repository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, id string) ([]widget.Option, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, "SELECT options FROM option_sets WHERE id = $1", id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query option set %q: %w", id, err)
	}

	opts := []widget.Option{}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("decode option set %q: %w", id, err)
	}
	return opts, nil
}

// Put creates or replaces the set. It reports whether the row was new.
func (r *Repository) Put(ctx context.Context, id string, opts []widget.Option) (bool, error) {
	if opts == nil {
		opts = []widget.Option{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return false, fmt.Errorf("encode option set %q: %w", id, err)
	}

	var created bool
	err = r.db.QueryRow(ctx,
		`INSERT INTO option_sets (id, options) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET options = EXCLUDED.options, updated_at = now()
		 RETURNING (xmax = 0)`,
		id, raw,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert option set %q: %w", id, err)
	}
	return created, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM option_sets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete option set %q: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, jsonb_array_length(options), updated_at FROM option_sets ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("list option sets: %w", err)
	}
	defer rows.Close()

	items := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Count, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan option set: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Fetch lets the repository stand in for a remote endpoint when the
// widget runs in-process with the database.
func (r *Repository) Fetch(ctx context.Context, setID string) ([]widget.Option, error) {
	return r.Get(ctx, setID)
}

var _ widget.Fetcher = (*Repository)(nil)
