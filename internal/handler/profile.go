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
	"github.com/skywatch/drone-investigations/internal/upload"
	"github.com/skywatch/drone-investigations/internal/validate"
)

// ProfileHandler serves the authenticated caller's own account: view,
// update (including avatar upload) and self-service deletion.
type ProfileHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
}

func NewProfileHandler(cfg config.Config, a *repository.AccountRepo) *ProfileHandler {
	return &ProfileHandler{Cfg: cfg, Accounts: a}
}

type profileResp struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Bio          string    `json:"bio"`
	Role         string    `json:"role"`
	Organization string    `json:"organization"`
	WebsiteURL   string    `json:"website_url"`
	AvatarURL    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// avatarURL resolves the stored picture reference to a servable path.
// The sentinel default lives with the static images; uploads live in
// the profile picture directory.
func avatarURL(ref string) string {
	if ref == model.DefaultProfilePic {
		return "/static/images/" + ref
	}
	return "/static/uploads/" + ref
}

func toProfileResp(a *model.Account) profileResp {
	return profileResp{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Bio:          a.Bio,
		Role:         a.Role,
		Organization: a.Organization,
		WebsiteURL:   a.WebsiteURL,
		AvatarURL:    avatarURL(a.ProfilePic),
		CreatedAt:    a.CreatedAt,
	}
}

// Me handles GET /v1/me and returns the caller's profile.
func (h *ProfileHandler) Me(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	acc, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toProfileResp(acc))
}

// Update handles PUT /v1/me. The body is multipart form data so an
// avatar can ride along; all profile fields are overwritten from the
// form. Username and email uniqueness is re-checked only when the value
// actually changed, so keeping one's own name is never a collision.
// When a new picture is supplied it is resized and stored before the
// row is updated; the old reference is simply overwritten.
func (h *ProfileHandler) Update(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	acc, err := h.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	in := validate.Profile{
		Username:     strings.TrimSpace(c.FormValue("username")),
		Email:        strings.ToLower(strings.TrimSpace(c.FormValue("email"))),
		FirstName:    c.FormValue("first_name"),
		LastName:     c.FormValue("last_name"),
		Role:         c.FormValue("role"),
		Organization: c.FormValue("organization"),
		WebsiteURL:   c.FormValue("website_url"),
		Bio:          c.FormValue("bio"),
	}
	fe := validate.CheckProfile(in)

	// Uniqueness re-checked only when the field changed from the
	// caller's current value.
	if _, ok := fe["username"]; !ok && in.Username != acc.Username {
		taken, err := h.Accounts.UsernameTaken(ctx, in.Username, accountID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if taken {
			fe["username"] = "That username is taken."
		}
	}
	if _, ok := fe["email"]; !ok && in.Email != acc.Email {
		taken, err := h.Accounts.EmailTaken(ctx, in.Email, accountID)
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

	if file, err := c.FormFile("picture"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"picture": "could not read upload"}})
		}
		name, err := upload.Save(h.Cfg.UploadDir, file.Filename, src)
		src.Close()
		if err != nil {
			if errors.Is(err, upload.ErrUnsupportedType) {
				return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"picture": "only jpg, jpeg and png files are allowed"}})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store picture failed"})
		}
		acc.ProfilePic = name
	}

	acc.Username = in.Username
	acc.Email = in.Email
	acc.FirstName = in.FirstName
	acc.LastName = in.LastName
	acc.Role = in.Role
	acc.Organization = in.Organization
	acc.WebsiteURL = in.WebsiteURL
	acc.Bio = in.Bio

	if err := h.Accounts.UpdateProfile(ctx, acc); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"username": "That username is taken."}})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"email": "That email is already registered."}})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, toProfileResp(acc))
}

// Delete handles DELETE /v1/me: the caller permanently deletes their
// own account together with all owned investigations and reports, then
// the session cookie is cleared. There is no undo.
func (h *ProfileHandler) Delete(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.DeleteCascade(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}
