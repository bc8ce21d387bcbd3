package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"board-api/domain"
	"board-api/storage"
)

type bulkMoveRequest struct {
	IDs       []int64           `json:"ids"`
	Status    domain.TaskStatus `json:"status"`
	ProjectID *int64            `json:"projectId,omitempty"`
}

type bulkAssignRequest struct {
	IDs        []int64           `json:"ids"`
	AssigneeID domain.OptionalID `json:"assigneeId"`
}

type bulkUpdateRequest struct {
	IDs   []int64          `json:"ids"`
	Patch domain.TaskPatch `json:"patch"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// Bulk handlers are best effort: ids that do not exist are reported in
// "skipped" and never fail the request.

func bulkMove(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkMoveRequest
		if err := decodeBody(c, &req, true); err != nil {
			return err
		}
		if err := validTaskStatus(&req.Status); err != nil {
			return err
		}
		res, err := store.BulkMove(c.Request().Context(), req.IDs, req.Status, req.ProjectID)
		if err != nil {
			return err
		}
		emitBulk(notifier, domain.TaskMoved, res)
		if req.ProjectID != nil {
			notifier.Reshuffled()
		}
		return respondBulk(c, res)
	}
}

func bulkAssign(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkAssignRequest
		if err := decodeBody(c, &req, true); err != nil {
			return err
		}
		if !req.AssigneeID.Set {
			return badRequest("assigneeId is required, use null to unassign")
		}
		res, err := store.BulkAssign(c.Request().Context(), req.IDs, req.AssigneeID.Value)
		if err != nil {
			return err
		}
		emitBulk(notifier, domain.TaskUpdated, res)
		return respondBulk(c, res)
	}
}

func bulkUpdate(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkUpdateRequest
		if err := decodeBody(c, &req, true); err != nil {
			return err
		}
		if err := validateTaskPatch(req.Patch); err != nil {
			return err
		}
		res, err := store.BulkUpdate(c.Request().Context(), req.IDs, req.Patch)
		if err != nil {
			return err
		}
		emitBulk(notifier, domain.TaskUpdated, res)
		if req.Patch.ProjectID != nil {
			notifier.Reshuffled()
		}
		return respondBulk(c, res)
	}
}

func bulkDelete(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkDeleteRequest
		if err := decodeBody(c, &req, true); err != nil {
			return err
		}
		res, err := store.BulkDelete(c.Request().Context(), req.IDs)
		if err != nil {
			return err
		}
		emitBulk(notifier, domain.TaskDeleted, res)
		return respondBulk(c, res)
	}
}

func emitBulk(notifier *Notifier, typ string, res storage.BulkResult) {
	if len(res.Tasks) == 0 {
		return
	}
	events := make([]domain.Event, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		events = append(events, domain.TaskEvent(typ, t))
	}
	notifier.Emit(events...)
}

func respondBulk(c echo.Context, res storage.BulkResult) error {
	metricsFrom(c).SetItems(len(res.Tasks))
	return c.JSON(http.StatusOK, res)
}
