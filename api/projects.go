package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"board-api/board"
	"board-api/domain"
)

func listProjects(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := projectFilterFromQuery(c)
		if err != nil {
			return err
		}
		projects, err := store.ListProjects(c.Request().Context())
		if err != nil {
			return err
		}
		return respondList(c, domain.FilterProjects(projects, f))
	}
}

func projectStats(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := store.ListProjects(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, domain.CountProjects(projects))
	}
}

func getProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		p, err := store.GetProject(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, p)
	}
}

func createProject(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewProject
		if err := decodeBody(c, &in, false); err != nil {
			return err
		}
		if in.Status != "" {
			if err := validateProject(&in.Status, nil); err != nil {
				return err
			}
		}
		p, err := store.CreateProject(c.Request().Context(), in)
		if err != nil {
			return err
		}
		notifier.Emit(domain.ProjectEvent(domain.ProjectCreated, p))
		return c.JSON(http.StatusCreated, p)
	}
}

func updateProject(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var patch domain.ProjectPatch
		if err := decodeBody(c, &patch, false); err != nil {
			return err
		}
		if err := validateProject(patch.Status, patch.Progress); err != nil {
			return err
		}
		p, err := store.UpdateProject(c.Request().Context(), id, patch)
		if err != nil {
			return err
		}
		notifier.Emit(domain.ProjectEvent(domain.ProjectUpdated, p))
		return c.JSON(http.StatusOK, p)
	}
}

// deleteProject leaves the project's tasks in place.
func deleteProject(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		p, err := store.DeleteProject(c.Request().Context(), id)
		if err != nil {
			return err
		}
		notifier.Emit(domain.ProjectEvent(domain.ProjectDeleted, p))
		return c.JSON(http.StatusOK, p)
	}
}

func projectTasks(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		f, err := taskFilterFromQuery(c)
		if err != nil {
			return err
		}
		f.ProjectID = nil
		tasks, err := store.ListTasksByProject(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return respondList(c, domain.FilterTasks(tasks, f, store.Now()))
	}
}

func projectBoard(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		b, err := store.Board(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b)
	}
}

// projectOverview returns everything a board screen needs in one round trip.
func projectOverview(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		view, err := board.Load(c.Request().Context(), store, id)
		if err != nil {
			return err
		}
		metricsFrom(c).SetItems(len(view.Tasks))
		return c.JSON(http.StatusOK, view)
	}
}

func projectTimeline(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		f, err := taskFilterFromQuery(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		if _, err := store.GetProject(ctx, id); err != nil {
			return err
		}
		tasks, err := store.ListTasksByProject(ctx, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, domain.BuildTimeline(domain.FilterTasks(tasks, f, store.Now())))
	}
}

func timeline(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := taskFilterFromQuery(c)
		if err != nil {
			return err
		}
		tasks, err := store.ListTasks(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, domain.BuildTimeline(domain.FilterTasks(tasks, f, store.Now())))
	}
}
