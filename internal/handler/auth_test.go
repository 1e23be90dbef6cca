package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skywatch/drone-investigations/internal/config"
	"github.com/skywatch/drone-investigations/internal/middleware"
	"github.com/skywatch/drone-investigations/internal/model"
	"github.com/skywatch/drone-investigations/internal/repository"
	"github.com/skywatch/drone-investigations/internal/utils"
)

func testCfg() config.Config {
	return config.Config{
		SessionSecret:   "test-secret",
		SessionTTLMin:   30,
		RememberTTLDays: 14,
		BcryptCost:      bcrypt.MinCost,
	}
}

func newAuthHandlerWithMock(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	h := NewAuthHandler(testCfg(),
		repository.NewAccountRepo(db),
		repository.NewInvestigationRepo(db),
		repository.NewReportRepo(db),
		repository.NewFeedRepo(db))
	return h, mock, db
}

func jsonCtx(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func accountRowFor(a *model.Account) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "profile_pic_url",
		"first_name", "last_name", "bio", "role", "organization", "website_url", "created_at", "updated_at"}).
		AddRow(a.ID, a.Username, a.Email, a.PasswordHash, a.ProfilePic,
			a.FirstName, a.LastName, a.Bio, a.Role, a.Organization, a.WebsiteURL, a.CreatedAt, a.UpdatedAt)
}

// The login failure body must be byte-identical for an unknown email
// and for a wrong password, so the response cannot be used to probe
// which emails are registered.
func TestLogin_UniformFailureMessage(t *testing.T) {
	e := echo.New()

	// Case 1: email does not exist.
	h1, mock1, db1 := newAuthHandlerWithMock(t)
	defer db1.Close()
	mock1.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \?`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	c1, rec1 := jsonCtx(e, http.MethodPost, "/v1/auth/login",
		`{"email":"ghost@example.com","password":"whatever"}`)
	require.NoError(t, h1.Login(c1))
	assert.Equal(t, http.StatusUnauthorized, rec1.Code)

	// Case 2: email exists but the password is wrong.
	hash, err := utils.HashPassword("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	acc := &model.Account{ID: 5, Username: "alice", Email: "alice@example.com",
		PasswordHash: hash, ProfilePic: model.DefaultProfilePic, CreatedAt: now, UpdatedAt: now}

	h2, mock2, db2 := newAuthHandlerWithMock(t)
	defer db2.Close()
	mock2.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \?`).
		WithArgs("alice@example.com").
		WillReturnRows(accountRowFor(acc))

	c2, rec2 := jsonCtx(e, http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`)
	require.NoError(t, h2.Login(c2))
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)

	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Contains(t, rec1.Body.String(), LoginFailedMessage)
}

func TestLogin_SuccessSetsSessionCookie(t *testing.T) {
	e := echo.New()
	h, mock, db := newAuthHandlerWithMock(t)
	defer db.Close()

	hash, err := utils.HashPassword("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	acc := &model.Account{ID: 5, Username: "alice", Email: "alice@example.com",
		PasswordHash: hash, ProfilePic: model.DefaultProfilePic, CreatedAt: now, UpdatedAt: now}
	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \?`).
		WithArgs("alice@example.com").
		WillReturnRows(accountRowFor(acc))

	c, rec := jsonCtx(e, http.MethodPost, "/v1/auth/login",
		`{"email":"alice@example.com","password":"correct-horse","remember":true}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var session *http.Cookie
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookie {
			session = ck
		}
	}
	require.NotNil(t, session, "session cookie must be set")
	assert.True(t, session.HttpOnly)
	assert.False(t, session.Expires.IsZero(), "remember flag makes the cookie persistent")

	accountID, err := utils.ParseSessionToken("test-secret", session.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), accountID)
}

// A sign-up with an already-taken username fails validation and never
// reaches the INSERT.
func TestSignUp_DuplicateUsername(t *testing.T) {
	e := echo.New()
	h, mock, db := newAuthHandlerWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts WHERE username = \? AND id <> \?`).
		WithArgs("alice", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts WHERE email = \? AND id <> \?`).
		WithArgs("new@example.com", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	c, rec := jsonCtx(e, http.MethodPost, "/v1/auth/signup",
		`{"username":"alice","email":"new@example.com","password":"secret1","confirm_password":"secret1"}`)
	require.NoError(t, h.SignUp(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "username")
	assert.NoError(t, mock.ExpectationsWereMet(), "no INSERT may follow a failed uniqueness probe")
}

func TestSignUp_FieldValidation(t *testing.T) {
	e := echo.New()
	h, _, db := newAuthHandlerWithMock(t)
	defer db.Close()

	c, rec := jsonCtx(e, http.MethodPost, "/v1/auth/signup",
		`{"username":"al","email":"not-an-email","password":"123","confirm_password":"456"}`)
	require.NoError(t, h.SignUp(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, field := range []string{"username", "email", "password", "confirm_password"} {
		assert.Contains(t, body.Errors, field)
	}
}
