package model

import "time"

// Report is a lightweight user-owned artifact record. Reports have no
// lifecycle of their own: they are created, listed, and removed only
// when the owning account is deleted.
type Report struct {
	ID        uint64    // reports.id
	AccountID uint64    // reports.account_id
	Title     string    // reports.title (required, max 100 chars)
	FileType  string    // reports.file_type (e.g. "pdf", "doc", "csv")
	CreatedAt time.Time // reports.created_at
}
