// This file implements persistence for investigations: ownership-scoped
// CRUD, the unrestricted status write, the idempotent go-live write and
// the ordered/limited queries behind the dashboard. Every mutation is
// keyed on (id, account_id) so a record can never be touched by anyone
// but its owner.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/skywatch/drone-investigations/internal/model"
)

// InvestigationRepo encapsulates all database queries for investigations.
type InvestigationRepo struct {
	db *sql.DB
}

// NewInvestigationRepo constructs an InvestigationRepo with the provided DB handle.
func NewInvestigationRepo(db *sql.DB) *InvestigationRepo {
	return &InvestigationRepo{db: db}
}

const investigationCols = "id, account_id, title, location, drone_type, description, status, drone_image, created_at"

// Create inserts a new investigation. On success the ID and CreatedAt
// fields are populated so callers receive a fully formed record.
func (r *InvestigationRepo) Create(ctx context.Context, inv *model.Investigation) error {
	const qInsert = `INSERT INTO investigations
	                 (account_id, title, location, drone_type, description, status, drone_image)
	                 VALUES (?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		inv.AccountID, inv.Title, inv.Location, inv.DroneType, inv.Description,
		inv.Status, inv.DroneImage)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)

	// Follow-up SELECT to pick up the DB-assigned creation timestamp.
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM investigations WHERE id = ?", inv.ID).Scan(&inv.CreatedAt)
}

// GetOwned fetches an investigation and enforces ownership. It returns
// ErrInvestigationNotFound when no such record exists and ErrForbidden
// when it exists but belongs to a different account. Every handler
// operation on a single investigation goes through this check first, so
// an unauthorized attempt never reaches a mutation.
func (r *InvestigationRepo) GetOwned(ctx context.Context, id, accountID uint64) (*model.Investigation, error) {
	var inv model.Investigation
	err := r.db.QueryRowContext(ctx,
		"SELECT "+investigationCols+" FROM investigations WHERE id = ? LIMIT 1", id).
		Scan(&inv.ID, &inv.AccountID, &inv.Title, &inv.Location, &inv.DroneType,
			&inv.Description, &inv.Status, &inv.DroneImage, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvestigationNotFound
		}
		return nil, err
	}
	if inv.AccountID != accountID {
		return nil, ErrForbidden
	}
	return &inv, nil
}

// UpdateDetails overwrites title, location and description. The photo
// reference is replaced only when droneImage is non-empty; status and
// drone type are never touched by an edit. The caller must have
// verified ownership via GetOwned; the WHERE clause still scopes to the
// owner as a second guard.
func (r *InvestigationRepo) UpdateDetails(ctx context.Context, id, accountID uint64, title, location, description, droneImage string) error {
	const q = `UPDATE investigations
	           SET title = ?, location = ?, description = ?,
	               drone_image = IF(? = '', drone_image, ?)
	           WHERE id = ? AND account_id = ?`
	_, err := r.db.ExecContext(ctx, q, title, location, description, droneImage, droneImage, id, accountID)
	return err
}

// UpdateStatus overwrites the status unconditionally. There is no
// transition table: any status may follow any other, including moving a
// Completed record back to Pending. The creation timestamp is not
// touched. RowsAffected is not inspected: writing the same status is a
// valid no-op, and ownership was already checked.
func (r *InvestigationRepo) UpdateStatus(ctx context.Context, id, accountID uint64, status string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE investigations SET status = ? WHERE id = ? AND account_id = ?",
		status, id, accountID)
	return err
}

// MarkLive sets the status to Live unless it already is. The extra
// status predicate makes the write idempotent: a second call matches no
// row and performs no mutation.
func (r *InvestigationRepo) MarkLive(ctx context.Context, id, accountID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE investigations SET status = ? WHERE id = ? AND account_id = ? AND status <> ?",
		model.StatusLive, id, accountID, model.StatusLive)
	return err
}

// DeleteOwned permanently removes an investigation after verifying
// ownership. Returns ErrInvestigationNotFound for a missing record and
// ErrForbidden when the record belongs to someone else; in both cases
// nothing is deleted.
func (r *InvestigationRepo) DeleteOwned(ctx context.Context, id, accountID uint64) error {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT account_id FROM investigations WHERE id = ?", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvestigationNotFound
		}
		return err
	}
	if owner != accountID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM investigations WHERE id = ?", id)
	return err
}

// ListRecentByOwner returns up to limit investigations of the account,
// newest first by creation time (id breaks ties for rows created in the
// same second).
func (r *InvestigationRepo) ListRecentByOwner(ctx context.Context, accountID uint64, limit int) ([]*model.Investigation, error) {
	const q = "SELECT " + investigationCols + ` FROM investigations
	           WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.list(ctx, q, accountID, limit)
}

// ListByOwner returns every investigation of the account, newest first.
// The grouped-by-date listing is derived from this ordering.
func (r *InvestigationRepo) ListByOwner(ctx context.Context, accountID uint64) ([]*model.Investigation, error) {
	const q = "SELECT " + investigationCols + ` FROM investigations
	           WHERE account_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, accountID)
}

// CountByOwner returns the total number of investigations the account
// owns, independent of the recent-list limit.
func (r *InvestigationRepo) CountByOwner(ctx context.Context, accountID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM investigations WHERE account_id = ?", accountID).Scan(&n)
	return n, err
}

// PhotoRefs returns every drone photo filename referenced by an
// investigation, for the orphan reaper.
func (r *InvestigationRepo) PhotoRefs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT drone_image FROM investigations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *InvestigationRepo) list(ctx context.Context, q string, args ...any) ([]*model.Investigation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Investigation
	for rows.Next() {
		inv := new(model.Investigation)
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.Title, &inv.Location,
			&inv.DroneType, &inv.Description, &inv.Status, &inv.DroneImage, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
