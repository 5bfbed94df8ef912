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

const claimColumns = `id, item_id, claimer_id, message, status, admin_notes, created_at, updated_at`

// ClaimRepository handles persistence for claims.
type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Get(ctx context.Context, id int) (types.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE id = $1`, claimColumns)
	claim, err := scanClaim(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Claim{}, ErrNotFound
		}
		return types.Claim{}, err
	}
	return claim, nil
}

func (r *ClaimRepository) Create(ctx context.Context, claim types.Claim) (types.Claim, error) {
	now := time.Now()
	claim.CreatedAt = now
	claim.UpdatedAt = now

	const query = `
		INSERT INTO claims (item_id, claimer_id, message, status, admin_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		claim.ItemID,
		claim.ClaimerID,
		claim.Message,
		claim.Status,
		claim.AdminNotes,
		claim.CreatedAt,
		claim.UpdatedAt,
	).Scan(&claim.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Claim{}, ErrConflict
		}
		return types.Claim{}, err
	}
	return claim, nil
}

// UpdateStatus persists a status decision and refreshes the update
// timestamp. Message and claimer are never touched.
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id int, status types.ClaimStatus, adminNotes string) (types.Claim, error) {
	const query = `
		UPDATE claims
		SET status = $1,
			admin_notes = $2,
			updated_at = $3
		WHERE id = $4`
	updatedAt := time.Now()
	result, err := r.db.ExecContext(ctx, query, status, adminNotes, updatedAt, id)
	if err != nil {
		return types.Claim{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Claim{}, err
	}
	if affected == 0 {
		return types.Claim{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *ClaimRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM claims WHERE id = $1`
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

// ListForItem returns every claim against the given item, newest first.
func (r *ClaimRepository) ListForItem(ctx context.Context, itemID int) ([]types.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE item_id = $1 ORDER BY created_at DESC, id DESC`, claimColumns)
	return r.queryClaims(ctx, query, itemID)
}

// ListByClaimer returns every claim authored by the given user, newest first.
func (r *ClaimRepository) ListByClaimer(ctx context.Context, claimerID int) ([]types.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE claimer_id = $1 ORDER BY created_at DESC, id DESC`, claimColumns)
	return r.queryClaims(ctx, query, claimerID)
}

// List applies the admin-mode conjunctive filter. An item-type
// constraint is resolved through a join on the items table.
func (r *ClaimRepository) List(ctx context.Context, filter types.ClaimFilter) ([]types.Claim, error) {
	cols := make([]string, 0, 8)
	for _, col := range strings.Split(claimColumns, ", ") {
		cols = append(cols, "claims."+col)
	}
	query := fmt.Sprintf(`SELECT %s FROM claims`, strings.Join(cols, ", "))

	var conds []string
	var args []any
	addCond := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if filter.ItemType != "" {
		query += " JOIN items ON claims.item_id = items.id"
		addCond("items.type = $%d", filter.ItemType)
	}
	if filter.Status != "" {
		addCond("claims.status = $%d", filter.Status)
	}
	if filter.ClaimerID > 0 {
		addCond("claims.claimer_id = $%d", filter.ClaimerID)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY claims.created_at DESC, claims.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryClaims(ctx, query, args...)
}

// Stats computes the aggregate claim statistics.
func (r *ClaimRepository) Stats(ctx context.Context) (types.ClaimStats, error) {
	var stats types.ClaimStats

	counts := []struct {
		dest  *int
		where string
		args  []any
	}{
		{&stats.TotalClaims, "", nil},
		{&stats.PendingClaims, "WHERE status = $1", []any{types.ClaimStatusPending}},
		{&stats.ApprovedClaims, "WHERE status = $1", []any{types.ClaimStatusApproved}},
		{&stats.RejectedClaims, "WHERE status = $1", []any{types.ClaimStatusRejected}},
		{&stats.CompletedClaims, "WHERE status = $1", []any{types.ClaimStatusCompleted}},
		{&stats.ClaimsThisMonth, "WHERE created_at >= $1", []any{time.Now().AddDate(0, 0, -30)}},
	}
	for _, c := range counts {
		query := "SELECT COUNT(1) FROM claims " + c.where
		if err := r.db.QueryRowContext(ctx, query, c.args...).Scan(c.dest); err != nil {
			return types.ClaimStats{}, err
		}
	}

	return stats, nil
}

func (r *ClaimRepository) queryClaims(ctx context.Context, query string, args ...any) ([]types.Claim, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := make([]types.Claim, 0)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return claims, nil
}

func scanClaim(row rowScanner) (types.Claim, error) {
	var claim types.Claim
	err := row.Scan(
		&claim.ID,
		&claim.ItemID,
		&claim.ClaimerID,
		&claim.Message,
		&claim.Status,
		&claim.AdminNotes,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	return claim, err
}
