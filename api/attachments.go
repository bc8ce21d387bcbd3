package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"board-api/domain"
)

func listFiles(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		files, err := store.Files(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return respondList(c, files)
	}
}

// attachFile records file metadata only; content is stored elsewhere.
func attachFile(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var in domain.FileUpload
		if err := decodeBody(c, &in, true); err != nil {
			return err
		}
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			return badRequest("file name is required")
		}
		if in.Size < 0 {
			return badRequest("file size must not be negative")
		}
		t, err := store.AttachFile(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		notifier.Emit(domain.TaskEvent(domain.FileAttached, t))
		return c.JSON(http.StatusCreated, t)
	}
}

func removeFile(store Store, notifier *Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		fileID, err := pathID(c, "fileId")
		if err != nil {
			return err
		}
		t, err := store.RemoveFile(c.Request().Context(), id, fileID)
		if err != nil {
			return err
		}
		notifier.Emit(domain.TaskEvent(domain.FileRemoved, t))
		return c.JSON(http.StatusOK, t)
	}
}
