package api

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"board-api/domain"
)

const maxBodySize = 1 << 20

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

func queryID(c echo.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &id, nil
}

// decodeBody reads a JSON body of at most maxBodySize bytes. Strict bodies
// reject unknown fields.
func decodeBody(c echo.Context, v any, strict bool) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid body")
	}
	return nil
}

func taskFilterFromQuery(c echo.Context) (domain.TaskFilter, error) {
	var f domain.TaskFilter
	var err error
	if f.ProjectID, err = queryID(c, "projectId"); err != nil {
		return f, err
	}
	if f.AssigneeID, err = queryID(c, "assigneeId"); err != nil {
		return f, err
	}
	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		f.Status = domain.TaskStatus(raw)
		if !f.Status.Valid() {
			return f, badRequest(fmt.Sprintf("unknown status %q", raw))
		}
	}
	f.Search = strings.TrimSpace(c.QueryParam("q"))
	if f.Due, err = domain.ParseDueBucket(c.QueryParam("due")); err != nil {
		return f, badRequest(err.Error())
	}
	return f, nil
}

func projectFilterFromQuery(c echo.Context) (domain.ProjectFilter, error) {
	f := domain.ProjectFilter{Search: strings.TrimSpace(c.QueryParam("q"))}
	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		f.Status = domain.ProjectStatus(raw)
		if !f.Status.Valid() {
			return f, badRequest(fmt.Sprintf("unknown status %q", raw))
		}
	}
	return f, nil
}

func validTaskStatus(s *domain.TaskStatus) error {
	if s != nil && !s.Valid() {
		return badRequest(fmt.Sprintf("unknown status %q", *s))
	}
	return nil
}

func validProgress(p *int) error {
	if p != nil && (*p < 0 || *p > 100) {
		return badRequest("progress must be between 0 and 100")
	}
	return nil
}

func validateNewTask(in domain.NewTask) error {
	if in.Status != "" && !in.Status.Valid() {
		return badRequest(fmt.Sprintf("unknown status %q", in.Status))
	}
	return nil
}

func validateTaskPatch(p domain.TaskPatch) error {
	if err := validTaskStatus(p.Status); err != nil {
		return err
	}
	return validProgress(p.Progress)
}

func validateProject(status *domain.ProjectStatus, progress *int) error {
	if status != nil && !status.Valid() {
		return badRequest(fmt.Sprintf("unknown status %q", *status))
	}
	return validProgress(progress)
}
