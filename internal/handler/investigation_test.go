package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch/drone-investigations/internal/model"
	"github.com/skywatch/drone-investigations/internal/repository"
)

func newInvHandlerWithMock(t *testing.T) (*InvestigationHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	// BrokerURL left empty so no feed events are published from tests.
	return NewInvestigationHandler(testCfg(), repository.NewInvestigationRepo(db)), mock, db
}

func invRow(id, accountID uint64, title, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_id", "title", "location", "drone_type",
		"description", "status", "drone_image", "created_at"}).
		AddRow(id, accountID, title, "", "", "", status, model.DefaultDroneImage, time.Now().UTC())
}

func authedCtx(e *echo.Echo, req *http.Request, accountID uint64, id string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("account_id", accountID)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c, rec
}

// Creating without a photo keeps the default drone image and the
// Pending entry status.
func TestCreate_DefaultsWithoutPhoto(t *testing.T) {
	e := echo.New()
	h, mock, db := newInvHandlerWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO investigations`).
		WithArgs(uint64(1), "Perimeter Breach", "", "", "", model.StatusPending, model.DefaultDroneImage).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`SELECT created_at FROM investigations WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Perimeter Breach"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/investigations", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	c, rec := authedCtx(e, req, 1, "")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp investigationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.ID)
	assert.Equal(t, model.StatusPending, resp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Reading someone else's investigation answers 403, and the record is
// never touched.
func TestGet_ForeignRecordForbidden(t *testing.T) {
	e := echo.New()
	h, mock, db := newInvHandlerWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM investigations WHERE id = \?`).
		WithArgs(uint64(9)).
		WillReturnRows(invRow(9, 2, "Not Yours", model.StatusPending))

	req := httptest.NewRequest(http.MethodGet, "/v1/investigations/9", nil)
	c, rec := authedCtx(e, req, 1, "9")

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Entering the live view forces the record to Live once; a second visit
// finds it already Live and performs no write.
func TestLive_IdempotentTransition(t *testing.T) {
	e := echo.New()
	h, mock, db := newInvHandlerWithMock(t)
	defer db.Close()

	// First visit: Pending, so the go-live write fires.
	mock.ExpectQuery(`SELECT .+ FROM investigations WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(invRow(3, 1, "Night Flight", model.StatusPending))
	mock.ExpectExec(`UPDATE investigations SET status = \? WHERE id = \? AND account_id = \? AND status <> \?`).
		WithArgs(model.StatusLive, uint64(3), uint64(1), model.StatusLive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodGet, "/v1/investigations/3/live", nil)
	c, rec := authedCtx(e, req, 1, "3")
	require.NoError(t, h.Live(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp investigationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusLive, resp.Status)

	// Second visit: already Live, so only the read happens.
	mock.ExpectQuery(`SELECT .+ FROM investigations WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(invRow(3, 1, "Night Flight", model.StatusLive))

	req2 := httptest.NewRequest(http.MethodGet, "/v1/investigations/3/live", nil)
	c2, rec2 := authedCtx(e, req2, 1, "3")
	require.NoError(t, h.Live(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)

	var resp2 investigationResp
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp2))
	assert.Equal(t, model.StatusLive, resp2.Status)
	assert.NoError(t, mock.ExpectationsWereMet(), "second live view must not write")
}

// Any status may follow any other, including Completed back to Pending.
func TestUpdateStatus_CompletedBackToPending(t *testing.T) {
	e := echo.New()
	h, mock, db := newInvHandlerWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM investigations WHERE id = \?`).
		WithArgs(uint64(4)).
		WillReturnRows(invRow(4, 1, "Closed Case", model.StatusCompleted))
	mock.ExpectExec(`UPDATE investigations SET status = \? WHERE id = \? AND account_id = \?`).
		WithArgs(model.StatusPending, uint64(4), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := jsonCtxAuthed(e, http.MethodPost, "/v1/investigations/4/status",
		`{"status":"Pending"}`, 1, "4")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Investigation investigationResp `json:"investigation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusPending, resp.Investigation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// go_live alone writes nothing and hands back the live view path.
func TestUpdateStatus_GoLiveRedirect(t *testing.T) {
	e := echo.New()
	h, mock, db := newInvHandlerWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM investigations WHERE id = \?`).
		WithArgs(uint64(6)).
		WillReturnRows(invRow(6, 1, "Going Live", model.StatusPending))

	c, rec := jsonCtxAuthed(e, http.MethodPost, "/v1/investigations/6/status",
		`{"go_live":true}`, 1, "6")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/v1/investigations/6/live", resp.Redirect)
	assert.NoError(t, mock.ExpectationsWereMet(), "go_live alone is not a status write")
}

func TestUpdateStatus_EmptyBodyRejected(t *testing.T) {
	e := echo.New()
	h, _, db := newInvHandlerWithMock(t)
	defer db.Close()

	c, rec := jsonCtxAuthed(e, http.MethodPost, "/v1/investigations/6/status", `{}`, 1, "6")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Deleting a missing record answers 404; a foreign one answers 403.
func TestDelete_OwnershipMapping(t *testing.T) {
	e := echo.New()
	h, mock, db := newInvHandlerWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT account_id FROM investigations WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnError(sql.ErrNoRows)
	req := httptest.NewRequest(http.MethodDelete, "/v1/investigations/11", nil)
	c, rec := authedCtx(e, req, 1, "11")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mock.ExpectQuery(`SELECT account_id FROM investigations WHERE id = \?`).
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(2))
	req2 := httptest.NewRequest(http.MethodDelete, "/v1/investigations/12", nil)
	c2, rec2 := authedCtx(e, req2, 1, "12")
	require.NoError(t, h.Delete(c2))
	assert.Equal(t, http.StatusForbidden, rec2.Code)

	assert.NoError(t, mock.ExpectationsWereMet(), "failed ownership checks must not delete")
}

func jsonCtxAuthed(e *echo.Echo, method, path, body string, accountID uint64, id string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := jsonCtx(e, method, path, body)
	c.Set("account_id", accountID)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c, rec
}
