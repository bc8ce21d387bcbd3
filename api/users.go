package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"board-api/domain"
)

func listUsers(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := store.ListUsers(c.Request().Context())
		if err != nil {
			return err
		}
		return respondList(c, domain.FilterUsers(users, strings.TrimSpace(c.QueryParam("q"))))
	}
}

func getUser(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		u, err := store.GetUser(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, u)
	}
}

func createUser(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewUser
		if err := decodeBody(c, &in, false); err != nil {
			return err
		}
		u, err := store.CreateUser(c.Request().Context(), in)
		if err != nil {
			return err
		}
		notifier.Emit(domain.NewEvent(domain.UserCreated, domain.EntityUser, u.ID, u))
		return c.JSON(http.StatusCreated, u)
	}
}

func updateUser(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var patch domain.UserPatch
		if err := decodeBody(c, &patch, false); err != nil {
			return err
		}
		u, err := store.UpdateUser(c.Request().Context(), id, patch)
		if err != nil {
			return err
		}
		notifier.Emit(domain.NewEvent(domain.UserUpdated, domain.EntityUser, u.ID, u))
		return c.JSON(http.StatusOK, u)
	}
}

// deleteUser keeps tasks assigned to the user untouched.
func deleteUser(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		u, err := store.DeleteUser(c.Request().Context(), id)
		if err != nil {
			return err
		}
		notifier.Emit(domain.NewEvent(domain.UserDeleted, domain.EntityUser, u.ID, u))
		return c.JSON(http.StatusOK, u)
	}
}

func userStats(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		if _, err := store.GetUser(ctx, id); err != nil {
			return err
		}
		tasks, err := store.ListTasks(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, domain.UserWorkload(id, tasks, store.Now()))
	}
}
