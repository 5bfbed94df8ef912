package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/findly-app/apiserver/types"
)

const itemColumns = `id, name, description, type, location, date, image_key, status, owner_id, created_at, updated_at`

// ItemRepository handles persistence for items.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Get(ctx context.Context, id int) (types.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE id = $1`, itemColumns)
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Item{}, ErrNotFound
		}
		return types.Item{}, err
	}
	return item, nil
}

func (r *ItemRepository) Create(ctx context.Context, item types.Item) (types.Item, error) {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	const query = `
		INSERT INTO items (name, description, type, location, date, image_key, status, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		item.Name,
		item.Description,
		item.Type,
		item.Location,
		item.Date,
		item.ImageKey,
		item.Status,
		item.OwnerID,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID); err != nil {
		return types.Item{}, err
	}
	return item, nil
}

// Update persists every mutable field of the item. The owner column is
// deliberately not part of the statement: ownership is immutable.
func (r *ItemRepository) Update(ctx context.Context, item types.Item) (types.Item, error) {
	item.UpdatedAt = time.Now()

	const query = `
		UPDATE items
		SET name = $1,
			description = $2,
			type = $3,
			location = $4,
			date = $5,
			image_key = $6,
			status = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		item.Name,
		item.Description,
		item.Type,
		item.Location,
		item.Date,
		item.ImageKey,
		item.Status,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return types.Item{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Item{}, err
	}
	if affected == 0 {
		return types.Item{}, ErrNotFound
	}
	return item, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM items WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List applies the conjunctive filter and returns items ordered by
// event date descending (id descending as tiebreaker, so pagination
// over the ordering is deterministic).
func (r *ItemRepository) List(ctx context.Context, filter types.ItemFilter) ([]types.Item, error) {
	var conds []string
	var args []any
	addCond := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if filter.Type != "" {
		addCond("type = $%d", filter.Type)
	}
	if filter.Status != "" {
		addCond("status = $%d", filter.Status)
	}
	if filter.Location != "" {
		addCond("location ILIKE $%d", "%"+filter.Location+"%")
	}
	if !filter.DateFrom.IsZero() {
		addCond("date >= $%d", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		addCond("date <= $%d", filter.DateTo)
	}
	if filter.OwnerID > 0 {
		addCond("owner_id = $%d", filter.OwnerID)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM items`, itemColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats computes the aggregate item statistics.
func (r *ItemRepository) Stats(ctx context.Context) (types.ItemStats, error) {
	var stats types.ItemStats

	counts := []struct {
		dest  *int
		where string
		args  []any
	}{
		{&stats.TotalItems, "", nil},
		{&stats.LostItems, "WHERE type = $1", []any{types.ItemTypeLost}},
		{&stats.FoundItems, "WHERE type = $1", []any{types.ItemTypeFound}},
		{&stats.ActiveItems, "WHERE status = $1", []any{types.ItemStatusActive}},
		{&stats.ClaimedItems, "WHERE status = $1", []any{types.ItemStatusClaimed}},
		{&stats.ReturnedItems, "WHERE status = $1", []any{types.ItemStatusReturned}},
		{&stats.RecentItems30Days, "WHERE date >= $1", []any{time.Now().AddDate(0, 0, -30)}},
	}
	for _, c := range counts {
		query := "SELECT COUNT(1) FROM items " + c.where
		if err := r.db.QueryRowContext(ctx, query, c.args...).Scan(c.dest); err != nil {
			return types.ItemStats{}, err
		}
	}

	const locationsQuery = `
		SELECT location, COUNT(1) AS count
		FROM items
		GROUP BY location
		ORDER BY count DESC, location
		LIMIT 5`
	rows, err := r.db.QueryContext(ctx, locationsQuery)
	if err != nil {
		return types.ItemStats{}, err
	}
	defer rows.Close()

	stats.TopLocations = make([]types.LocationCount, 0, 5)
	for rows.Next() {
		var lc types.LocationCount
		if err := rows.Scan(&lc.Location, &lc.Count); err != nil {
			return types.ItemStats{}, err
		}
		stats.TopLocations = append(stats.TopLocations, lc)
	}
	if err := rows.Err(); err != nil {
		return types.ItemStats{}, err
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (types.Item, error) {
	var item types.Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Type,
		&item.Location,
		&item.Date,
		&item.ImageKey,
		&item.Status,
		&item.OwnerID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}
