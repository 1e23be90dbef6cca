package repository

import (
	"context"
	"database/sql"

	"github.com/skywatch/drone-investigations/internal/model"
)

// FeedRepo encapsulates database queries for the global activity feed.
// The feed is append-only: the consumer inserts, everyone reads.
type FeedRepo struct {
	db *sql.DB
}

// NewFeedRepo constructs a FeedRepo with the provided DB handle.
func NewFeedRepo(db *sql.DB) *FeedRepo {
	return &FeedRepo{db: db}
}

// Insert appends a feed item.
func (r *FeedRepo) Insert(ctx context.Context, title, icon string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO feed_items (title, icon) VALUES (?,?)", title, icon)
	return err
}

// ListRecent returns up to limit feed items, newest first.
func (r *FeedRepo) ListRecent(ctx context.Context, limit int) ([]*model.FeedItem, error) {
	const q = `SELECT id, title, icon, created_at
	           FROM feed_items ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.FeedItem
	for rows.Next() {
		it := new(model.FeedItem)
		if err := rows.Scan(&it.ID, &it.Title, &it.Icon, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Count returns the total number of feed items. Sign-up seeding uses it
// to add the starter feed entries only once.
func (r *FeedRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_items").Scan(&n)
	return n, err
}
