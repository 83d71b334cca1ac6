// Package items persists user-entered data items in SQLite.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bbernstein/waterlab/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("item not found")

const selectColumns = "SELECT id, name, description, createdAt FROM data_items"

type Repository struct {
	db *sql.DB
}

var _ models.ItemStore = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns every item, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY createdAt DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Debug().Err(err).Msg("Error closing item rows")
		}
	}()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*models.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}
	return item, nil
}

// Exists reports whether an item with id is stored.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM data_items WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking item %d: %w", id, err)
	}
	return true, nil
}

func (r *Repository) Create(ctx context.Context, name, description string) (*models.Item, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO data_items (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new item id: %w", err)
	}
	log.Debug().Int64("id", id).Msg("Item created")
	return r.Get(ctx, id)
}

// Update replaces name and description, returning ErrNotFound for an unknown id.
func (r *Repository) Update(ctx context.Context, id int64, name, description string) (*models.Item, error) {
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	if _, err := r.db.ExecContext(ctx, "UPDATE data_items SET name = ?, description = ? WHERE id = ?", name, description, id); err != nil {
		return nil, fmt.Errorf("updating item %d: %w", id, err)
	}
	return r.Get(ctx, id)
}

// Delete removes an item, returning ErrNotFound for an unknown id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM data_items WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	log.Debug().Int64("id", id).Msg("Item deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	if err := row.Scan(&item.ID, &item.Name, &item.Description, &item.CreatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}
