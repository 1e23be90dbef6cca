package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skywatch/drone-investigations/internal/config"
	"github.com/skywatch/drone-investigations/internal/middleware"
	"github.com/skywatch/drone-investigations/internal/model"
	"github.com/skywatch/drone-investigations/internal/repository"
	"github.com/skywatch/drone-investigations/internal/utils"
	"github.com/skywatch/drone-investigations/internal/validate"
)

// LoginFailedMessage is deliberately identical for an unknown email and
// a wrong password so the response cannot be used to enumerate accounts.
const LoginFailedMessage = "Login Unsuccessful. Please check email and password."

// AuthHandler bundles dependencies for the sign-up/login/logout endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
	Invs     *repository.InvestigationRepo
	Reports  *repository.ReportRepo
	Feed     *repository.FeedRepo
}

func NewAuthHandler(cfg config.Config, a *repository.AccountRepo, i *repository.InvestigationRepo, r *repository.ReportRepo, f *repository.FeedRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a, Invs: i, Reports: r, Feed: f}
}

// ----- DTOs -----

type signUpReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type accountPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SignUp creates a new account. Username and email are checked against
// existing accounts before the insert; the insert itself still maps a
// duplicate-key race onto the same per-field errors, so both guard
// paths hold. There is no verification step: the new account can log in
// right away, and it receives a set of starter records so the dashboard
// is not empty on first login.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fe := validate.CheckSignUp(validate.SignUp{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	// Pre-insert uniqueness probes; collisions are validation errors,
	// not conflicts, so they land next to the other field errors.
	if _, ok := fe["username"]; !ok {
		taken, err := h.Accounts.UsernameTaken(ctx, req.Username, 0)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if taken {
			fe["username"] = "That username is taken. Please choose a different one."
		}
	}
	if _, ok := fe["email"]; !ok {
		taken, err := h.Accounts.EmailTaken(ctx, req.Email, 0)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if taken {
			fe["email"] = "That email is already registered."
		}
	}
	if !fe.OK() {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}
	id, err := h.Accounts.Create(ctx, req.Username, req.Email, hash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"username": "That username is taken. Please choose a different one."}})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"email": "That email is already registered."}})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
		}
	}

	// Best effort: starter data failures should not fail the sign-up.
	if err := h.seedStarterData(ctx, id); err != nil {
		c.Logger().Warnf("seed starter data for account %d: %v", id, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"account": accountPart{ID: id, Username: req.Username, Email: req.Email},
		"message": "Your account has been created! You can now log in.",
	})
}

// Login verifies credentials and establishes a session cookie. The
// failure response is the same whether the email is unknown or the
// password is wrong. The remember flag swaps the short session TTL for
// the long one and makes the cookie persistent.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	acc, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": LoginFailedMessage})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(acc.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": LoginFailedMessage})
	}

	ttl := time.Duration(h.Cfg.SessionTTLMin) * time.Minute
	if req.Remember {
		ttl = time.Duration(h.Cfg.RememberTTLDays) * 24 * time.Hour
	}
	tok, err := utils.NewSessionToken(h.Cfg.SessionSecret, acc.ID, ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if req.Remember {
		cookie.Expires = tok.Exp // persistent cookie; otherwise session-scoped
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, echo.Map{
		"account": accountPart{ID: acc.ID, Username: acc.Username, Email: acc.Email},
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

// seedStarterData populates a freshly created account with example
// investigations and reports, and seeds the global feed once when it is
// still empty.
func (h *AuthHandler) seedStarterData(ctx context.Context, accountID uint64) error {
	starter := []model.Investigation{
		{Title: "DJI Mavic Investigation #202", Status: model.StatusPending},
		{Title: "DJI Avata Investigation #202", Status: model.StatusAnalysis},
		{Title: "DJI Neo Investigation #2025", Status: model.StatusInProgress},
		{Title: "DJI Inspire Investigation #30", Status: model.StatusCompleted},
	}
	for i := range starter {
		starter[i].AccountID = accountID
		starter[i].DroneImage = model.DefaultDroneImage
		if err := h.Invs.Create(ctx, &starter[i]); err != nil {
			return err
		}
	}

	reports := []model.Report{
		{Title: "Forensic Analysis Report", FileType: "pdf"},
		{Title: "Monthly Summary Report", FileType: "doc"},
		{Title: "Incident Analysis Report", FileType: "csv"},
	}
	for i := range reports {
		reports[i].AccountID = accountID
		if err := h.Reports.Create(ctx, &reports[i]); err != nil {
			return err
		}
	}

	n, err := h.Feed.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := h.Feed.Insert(ctx, "New Drone Detection in Restricted Area", "fa-satellite-dish"); err != nil {
			return err
		}
		if err := h.Feed.Insert(ctx, "Suspicious Flight Pattern Detected", "fa-exclamation-triangle"); err != nil {
			return err
		}
	}
	return nil
}
