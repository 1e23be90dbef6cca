// Package handler implements the HTTP layer: request binding, input
// validation, translation of repository errors into status codes, and
// response shaping. All business rules that touch the database live in
// the repositories; handlers wire them to the authenticated caller.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skywatch/drone-investigations/internal/model"
	"github.com/skywatch/drone-investigations/internal/repository"
)

// dbTimeout bounds every database round-trip made from a handler.
const dbTimeout = 5 * time.Second

// getAccountID extracts the authenticated account ID placed in context
// by the session middleware.
func getAccountID(c echo.Context) (uint64, error) {
	switch t := c.Get("account_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid account_id in context")
}

// ownershipError maps the repository's single-record failure modes onto
// HTTP responses. Anything unmapped is a server error.
func ownershipError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrInvestigationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "investigation not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
}

// ----- shared response DTOs -----

type investigationResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	DroneType   string    `json:"drone_type"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DroneImage  string    `json:"drone_image"`
	CreatedAt   time.Time `json:"created_at"`
}

func toInvestigationResp(inv *model.Investigation) investigationResp {
	return investigationResp{
		ID:          inv.ID,
		Title:       inv.Title,
		Location:    inv.Location,
		DroneType:   inv.DroneType,
		Description: inv.Description,
		Status:      inv.Status,
		DroneImage:  inv.DroneImage,
		CreatedAt:   inv.CreatedAt,
	}
}

type reportResp struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

func toReportResp(rep *model.Report) reportResp {
	return reportResp{ID: rep.ID, Title: rep.Title, FileType: rep.FileType, CreatedAt: rep.CreatedAt}
}

type feedItemResp struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

func toFeedResp(items []*model.FeedItem) []feedItemResp {
	out := make([]feedItemResp, 0, len(items))
	for _, it := range items {
		out = append(out, feedItemResp{ID: it.ID, Title: it.Title, Icon: it.Icon, CreatedAt: it.CreatedAt})
	}
	return out
}
