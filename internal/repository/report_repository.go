package repository

import (
	"context"
	"database/sql"

	"github.com/skywatch/drone-investigations/internal/model"
)

// ReportRepo encapsulates database queries for reports. Reports carry
// no lifecycle: create and list are the only operations; rows disappear
// with the owning account's cascade delete.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo constructs a ReportRepo with the provided DB handle.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create inserts a report owned by rep.AccountID and populates its ID
// and CreatedAt.
func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reports (account_id, title, file_type) VALUES (?,?,?)",
		rep.AccountID, rep.Title, rep.FileType)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM reports WHERE id = ?", rep.ID).Scan(&rep.CreatedAt)
}

// ListRecentByOwner returns up to limit reports of the account, newest first.
func (r *ReportRepo) ListRecentByOwner(ctx context.Context, accountID uint64, limit int) ([]*model.Report, error) {
	const q = `SELECT id, account_id, title, file_type, created_at
	           FROM reports WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Report
	for rows.Next() {
		rep := new(model.Report)
		if err := rows.Scan(&rep.ID, &rep.AccountID, &rep.Title, &rep.FileType, &rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
