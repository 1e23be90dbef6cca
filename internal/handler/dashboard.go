package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/skywatch/drone-investigations/internal/model"
	"github.com/skywatch/drone-investigations/internal/repository"
	"github.com/skywatch/drone-investigations/internal/validate"
)

// Dashboard list sizes. The recent lists are teasers; the total count
// reflects everything the account owns.
const (
	recentInvestigations = 4
	recentReports        = 4
	recentFeedItems      = 5
)

// DashboardHandler assembles the read-only views: the per-account
// dashboard, the grouped investigations listing, the reports list and
// the global feed. The three dashboard queries are independent; slight
// staleness between them is acceptable.
type DashboardHandler struct {
	Invs    *repository.InvestigationRepo
	Reports *repository.ReportRepo
	Feed    *repository.FeedRepo
}

func NewDashboardHandler(i *repository.InvestigationRepo, r *repository.ReportRepo, f *repository.FeedRepo) *DashboardHandler {
	return &DashboardHandler{Invs: i, Reports: r, Feed: f}
}

// Dashboard handles GET /v1/dashboard: up to 4 recent investigations
// (newest first), the total count, up to 4 recent reports and the 5
// most recent global feed items.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	invs, err := h.Invs.ListRecentByOwner(ctx, accountID, recentInvestigations)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	total, err := h.Invs.CountByOwner(ctx, accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	reports, err := h.Reports.ListRecentByOwner(ctx, accountID, recentReports)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	feed, err := h.Feed.ListRecent(ctx, recentFeedItems)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	invOut := make([]investigationResp, 0, len(invs))
	for _, inv := range invs {
		invOut = append(invOut, toInvestigationResp(inv))
	}
	repOut := make([]reportResp, 0, len(reports))
	for _, rep := range reports {
		repOut = append(repOut, toReportResp(rep))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"investigations":      invOut,
		"investigation_count": total,
		"reports":             repOut,
		"feed":                toFeedResp(feed),
	})
}

// dayGroup is one calendar date worth of investigations in the full
// listing. Date is derived from the creation timestamp (UTC), not from
// status.
type dayGroup struct {
	Date           string              `json:"date"` // YYYY-MM-DD
	Investigations []investigationResp `json:"investigations"`
}

// GroupByDay buckets investigations by the calendar date of their
// creation. The input must already be ordered newest first; groups come
// out newest date first and items keep their order within a date.
func GroupByDay(invs []*model.Investigation) []dayGroup {
	groups := []dayGroup{}
	for _, inv := range invs {
		date := inv.CreatedAt.UTC().Format("2006-01-02")
		if n := len(groups); n > 0 && groups[n-1].Date == date {
			groups[n-1].Investigations = append(groups[n-1].Investigations, toInvestigationResp(inv))
			continue
		}
		groups = append(groups, dayGroup{
			Date:           date,
			Investigations: []investigationResp{toInvestigationResp(inv)},
		})
	}
	return groups
}

// ListGrouped handles GET /v1/investigations: every investigation of
// the caller grouped by calendar date, newest date first.
func (h *DashboardHandler) ListGrouped(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	invs, err := h.Invs.ListByOwner(ctx, accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"groups": GroupByDay(invs)})
}

// ListReports handles GET /v1/reports and returns the caller's recent
// reports, newest first.
func (h *DashboardHandler) ListReports(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	reports, err := h.Reports.ListRecentByOwner(ctx, accountID, recentReports)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]reportResp, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportResp(rep))
	}
	return c.JSON(http.StatusOK, echo.Map{"reports": out})
}

type createReportReq struct {
	Title    string `json:"title"`
	FileType string `json:"file_type"`
}

// CreateReport handles POST /v1/reports with the same ownership and
// validation contract as investigation creation.
func (h *DashboardHandler) CreateReport(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if fe := validate.CheckTitle(req.Title); !fe.OK() {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rep := &model.Report{AccountID: accountID, Title: req.Title, FileType: strings.TrimSpace(req.FileType)}
	if err := h.Reports.Create(ctx, rep); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create report failed"})
	}
	return c.JSON(http.StatusCreated, toReportResp(rep))
}

// FeedList handles GET /v1/feed: the 5 most recent global feed items,
// newest first, identical for every authenticated caller. This route
// sits behind the Redis response cache.
func (h *DashboardHandler) FeedList(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	feed, err := h.Feed.ListRecent(ctx, recentFeedItems)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"feed": toFeedResp(feed)})
}
