package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/skywatch/drone-investigations/internal/config"
	"github.com/skywatch/drone-investigations/internal/model"
	"github.com/skywatch/drone-investigations/internal/queue"
	"github.com/skywatch/drone-investigations/internal/repository"
	"github.com/skywatch/drone-investigations/internal/service/feedpublisher"
	"github.com/skywatch/drone-investigations/internal/upload"
	"github.com/skywatch/drone-investigations/internal/validate"
)

// InvestigationHandler serves the investigation lifecycle: create,
// read, edit, status updates, the live view and deletion. Every
// operation is scoped to the authenticated owner.
type InvestigationHandler struct {
	Cfg  config.Config
	Invs *repository.InvestigationRepo
}

func NewInvestigationHandler(cfg config.Config, i *repository.InvestigationRepo) *InvestigationHandler {
	return &InvestigationHandler{Cfg: cfg, Invs: i}
}

// publish sends an activity event to the feed pipeline, best effort. A
// broker outage must never fail the mutation that triggered the event.
func (h *InvestigationHandler) publish(c echo.Context, title, icon string) {
	if h.Cfg.BrokerURL == "" {
		return
	}
	if err := feedpublisher.Publish(c.Request().Context(), h.Cfg.BrokerURL, queue.ActivityEvent{Title: title, Icon: icon}); err != nil {
		c.Logger().Warnf("publish feed event: %v", err)
	}
}

func paramID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Create handles POST /v1/investigations. The body is multipart form
// data so a drone photo can be attached. The entry status is whatever
// the caller supplies, defaulting to Pending; without a photo the
// sentinel default image reference is kept. The photo file is written
// before the row is inserted; a failed insert leaves an orphan that the
// startup sweep reclaims.
func (h *InvestigationHandler) Create(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if fe := validate.CheckTitle(title); !fe.OK() {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	}
	status := strings.TrimSpace(c.FormValue("status"))
	if status == "" {
		status = model.StatusPending
	}

	droneImage := model.DefaultDroneImage
	if file, err := c.FormFile("photo"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"photo": "could not read upload"}})
		}
		name, err := upload.Save(h.Cfg.UploadDir, file.Filename, src)
		src.Close()
		if err != nil {
			if errors.Is(err, upload.ErrUnsupportedType) {
				return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"photo": "only jpg, jpeg and png files are allowed"}})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store photo failed"})
		}
		droneImage = name
	}

	inv := &model.Investigation{
		AccountID:   accountID,
		Title:       title,
		Location:    c.FormValue("location"),
		DroneType:   c.FormValue("drone_type"),
		Description: c.FormValue("description"),
		Status:      status,
		DroneImage:  droneImage,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Invs.Create(ctx, inv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create investigation failed"})
	}

	h.publish(c, fmt.Sprintf("New investigation opened: %s", inv.Title), queue.IconNewInvestigation)
	return c.JSON(http.StatusCreated, toInvestigationResp(inv))
}

// Get handles GET /v1/investigations/:id for the owner.
func (h *InvestigationHandler) Get(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	inv, err := h.Invs.GetOwned(ctx, id, accountID)
	if err != nil {
		return ownershipError(c, err)
	}
	return c.JSON(http.StatusOK, toInvestigationResp(inv))
}

// Update handles PUT /v1/investigations/:id. Title, location and
// description are overwritten; the photo is replaced only when a new
// one rides along. Status and drone type are never touched by an edit.
func (h *InvestigationHandler) Update(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	inv, err := h.Invs.GetOwned(ctx, id, accountID)
	if err != nil {
		return ownershipError(c, err)
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if fe := validate.CheckTitle(title); !fe.OK() {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	}

	droneImage := "" // empty keeps the current photo
	if file, err := c.FormFile("photo"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"photo": "could not read upload"}})
		}
		name, err := upload.Save(h.Cfg.UploadDir, file.Filename, src)
		src.Close()
		if err != nil {
			if errors.Is(err, upload.ErrUnsupportedType) {
				return c.JSON(http.StatusBadRequest, echo.Map{"errors": validate.FieldErrors{"photo": "only jpg, jpeg and png files are allowed"}})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store photo failed"})
		}
		droneImage = name
	}

	location := c.FormValue("location")
	description := c.FormValue("description")
	if err := h.Invs.UpdateDetails(ctx, id, accountID, title, location, description, droneImage); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	inv.Title = title
	inv.Location = location
	inv.Description = description
	if droneImage != "" {
		inv.DroneImage = droneImage
	}
	return c.JSON(http.StatusOK, toInvestigationResp(inv))
}

type statusReq struct {
	Status string `json:"status"`
	GoLive bool   `json:"go_live"`
}

// UpdateStatus handles POST /v1/investigations/:id/status. A supplied
// status overwrites the current one unconditionally; there is no
// transition table and no illegal-transition error. With the go_live
// flag the response carries the live view path for the client to
// follow; the transition to Live then happens when that view is
// entered (or right here when the supplied status is already Live).
func (h *InvestigationHandler) UpdateStatus(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" && !req.GoLive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status or go_live required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	inv, err := h.Invs.GetOwned(ctx, id, accountID)
	if err != nil {
		return ownershipError(c, err)
	}

	if req.Status != "" && req.Status != inv.Status {
		if err := h.Invs.UpdateStatus(ctx, id, accountID, req.Status); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		h.publish(c, fmt.Sprintf("Investigation %q moved to %s", inv.Title, req.Status), queue.IconStatusChange)
		inv.Status = req.Status
	}

	resp := echo.Map{"investigation": toInvestigationResp(inv)}
	if req.GoLive {
		resp["redirect"] = fmt.Sprintf("/v1/investigations/%d/live", id)
	}
	return c.JSON(http.StatusOK, resp)
}

// Live handles GET /v1/investigations/:id/live. Viewing the live page
// forces the record to Live as a side effect of the read; a second call
// finds it already Live and writes nothing.
func (h *InvestigationHandler) Live(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	inv, err := h.Invs.GetOwned(ctx, id, accountID)
	if err != nil {
		return ownershipError(c, err)
	}
	if inv.Status != model.StatusLive {
		if err := h.Invs.MarkLive(ctx, id, accountID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		h.publish(c, fmt.Sprintf("Investigation %q is now live", inv.Title), queue.IconWentLive)
		inv.Status = model.StatusLive
	}
	return c.JSON(http.StatusOK, toInvestigationResp(inv))
}

// Delete handles DELETE /v1/investigations/:id. The record is removed
// permanently; investigations own nothing, so there is no cascade.
func (h *InvestigationHandler) Delete(c echo.Context) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Invs.DeleteOwned(ctx, id, accountID); err != nil {
		return ownershipError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
