package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"board-api/domain"
)

func listComments(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		comments, err := store.ListComments(c.Request().Context())
		if err != nil {
			return err
		}
		return respondList(c, comments)
	}
}

func getComment(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		cm, err := store.GetComment(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cm)
	}
}

// createComment defaults the author to the caller.
func createComment(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewComment
		if err := decodeBody(c, &in, false); err != nil {
			return err
		}
		if in.AuthorID == 0 {
			in.AuthorID = currentUser(c)
		}
		cm, err := store.CreateComment(c.Request().Context(), in)
		if err != nil {
			return err
		}
		notifier.Emit(domain.NewEvent(domain.CommentCreated, domain.EntityComment, cm.ID, cm))
		return c.JSON(http.StatusCreated, cm)
	}
}

func updateComment(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var patch domain.CommentPatch
		if err := decodeBody(c, &patch, false); err != nil {
			return err
		}
		cm, err := store.UpdateComment(c.Request().Context(), id, patch)
		if err != nil {
			return err
		}
		notifier.Emit(domain.NewEvent(domain.CommentUpdated, domain.EntityComment, cm.ID, cm))
		return c.JSON(http.StatusOK, cm)
	}
}

func deleteComment(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		cm, err := store.DeleteComment(c.Request().Context(), id)
		if err != nil {
			return err
		}
		notifier.Emit(domain.NewEvent(domain.CommentDeleted, domain.EntityComment, cm.ID, cm))
		return c.JSON(http.StatusOK, cm)
	}
}
