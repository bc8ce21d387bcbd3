package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"board-api/domain"
)

func listTasks(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := taskFilterFromQuery(c)
		if err != nil {
			return err
		}
		tasks, err := store.ListTasks(c.Request().Context())
		if err != nil {
			return err
		}
		return respondList(c, domain.FilterTasks(tasks, f, store.Now()))
	}
}

// myTasks lists the caller's tasks. An assigneeId query parameter is
// overridden by the authenticated user.
func myTasks(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := taskFilterFromQuery(c)
		if err != nil {
			return err
		}
		me := currentUser(c)
		f.AssigneeID = &me
		tasks, err := store.ListTasks(c.Request().Context())
		if err != nil {
			return err
		}
		return respondList(c, domain.FilterTasks(tasks, f, store.Now()))
	}
}

func taskStats(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := taskFilterFromQuery(c)
		if err != nil {
			return err
		}
		f.Due = ""
		tasks, err := store.ListTasks(c.Request().Context())
		if err != nil {
			return err
		}
		now := store.Now()
		return c.JSON(http.StatusOK, domain.CountDueBuckets(domain.FilterTasks(tasks, f, now), now))
	}
}

func getTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		t, err := store.GetTask(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func createTask(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewTask
		if err := decodeBody(c, &in, false); err != nil {
			return err
		}
		if err := validateNewTask(in); err != nil {
			return err
		}
		t, err := store.CreateTask(c.Request().Context(), in)
		if err != nil {
			return err
		}
		notifier.Emit(domain.TaskEvent(domain.TaskCreated, t))
		return c.JSON(http.StatusCreated, t)
	}
}

func updateTask(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch, false); err != nil {
			return err
		}
		if err := validateTaskPatch(patch); err != nil {
			return err
		}
		t, err := store.UpdateTask(c.Request().Context(), id, patch)
		if err != nil {
			return err
		}
		notifier.Emit(domain.TaskEvent(domain.TaskUpdated, t))
		if patch.ProjectID != nil {
			notifier.Reshuffled()
		}
		return c.JSON(http.StatusOK, t)
	}
}

type statusRequest struct {
	Status   domain.TaskStatus `json:"status"`
	Position *int              `json:"position,omitempty"`
}

// updateTaskStatus backs drag and drop between board columns.
func updateTaskStatus(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var req statusRequest
		if err := decodeBody(c, &req, true); err != nil {
			return err
		}
		if err := validTaskStatus(&req.Status); err != nil {
			return err
		}
		t, err := store.UpdateStatus(c.Request().Context(), id, req.Status, req.Position)
		if err != nil {
			return err
		}
		notifier.Emit(domain.TaskEvent(domain.TaskMoved, t))
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		t, err := store.DeleteTask(c.Request().Context(), id)
		if err != nil {
			return err
		}
		notifier.Emit(domain.TaskEvent(domain.TaskDeleted, t))
		return c.JSON(http.StatusOK, t)
	}
}

func taskComments(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		comments, err := store.ListCommentsByTask(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return respondList(c, comments)
	}
}
