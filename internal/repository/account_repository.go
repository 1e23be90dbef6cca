package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/skywatch/drone-investigations/internal/model"
)

// AccountRepo encapsulates all database queries related to accounts.
type AccountRepo struct {
	db *sql.DB
}

// NewAccountRepo constructs an AccountRepo with the provided DB handle.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountCols = "id, username, email, password_hash, profile_pic_url, first_name, last_name, bio, role, organization, website_url, created_at, updated_at"

func scanAccount(row *sql.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.ProfilePic,
		&a.FirstName, &a.LastName, &a.Bio, &a.Role, &a.Organization, &a.WebsiteURL,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account and returns its ID. The password must
// already be hashed by the caller; plaintext never reaches this layer.
// Duplicate username/email races that slip past the handler's pre-insert
// probes are mapped onto the uniqueness sentinels here, so both guard
// paths exist.
func (r *AccountRepo) Create(ctx context.Context, username, email, passwordHash string) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (username, email, password_hash, profile_pic_url) VALUES (?,?,?,?)",
		username, email, passwordHash, model.DefaultProfilePic)
	if err != nil {
		return 0, dupKeyError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM accounts WHERE email = ? LIMIT 1", email)
	return scanAccount(row)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM accounts WHERE id = ? LIMIT 1", id)
	return scanAccount(row)
}

// UsernameTaken reports whether any account other than excludeID uses
// the given username. Pass excludeID 0 for sign-up checks; profile
// updates pass the caller's own ID so keeping the current name is not a
// false collision.
func (r *AccountRepo) UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE username = ? AND id <> ?",
		strings.TrimSpace(username), excludeID).Scan(&n)
	return n > 0, err
}

// EmailTaken reports whether any account other than excludeID uses the
// given email.
func (r *AccountRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE email = ? AND id <> ?",
		strings.ToLower(strings.TrimSpace(email)), excludeID).Scan(&n)
	return n > 0, err
}

// UpdateProfile overwrites all mutable profile fields of the account,
// including the avatar reference. Uniqueness races on username/email
// are mapped onto the uniqueness sentinels.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	const q = `UPDATE accounts
	           SET username = ?, email = ?, first_name = ?, last_name = ?, bio = ?,
	               role = ?, organization = ?, website_url = ?, profile_pic_url = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q,
		strings.TrimSpace(a.Username), strings.ToLower(strings.TrimSpace(a.Email)),
		a.FirstName, a.LastName, a.Bio, a.Role, a.Organization, a.WebsiteURL,
		a.ProfilePic, a.ID)
	if err != nil {
		return dupKeyError(err)
	}
	return nil
}

// DeleteCascade permanently removes an account together with all of its
// investigations and reports. The cascade is explicit and transactional
// rather than left to an implicit persistence default. Returns
// ErrAccountNotFound when the account does not exist.
func (r *AccountRepo) DeleteCascade(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM accounts WHERE id = ?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrAccountNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM investigations WHERE account_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM reports WHERE account_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id); err != nil {
		return err
	}
	return nil
}

// AvatarRefs returns every avatar filename currently referenced by an
// account. The orphan reaper uses it to decide which upload files are
// still live.
func (r *AccountRepo) AvatarRefs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT profile_pic_url FROM accounts")
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

// dupKeyError maps MySQL duplicate-key violations (error 1062) onto the
// uniqueness sentinels, keyed on which index the message names.
func dupKeyError(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "username") {
		return ErrUsernameExists
	}
	if strings.Contains(msg, "email") {
		return ErrEmailExists
	}
	return err
}
