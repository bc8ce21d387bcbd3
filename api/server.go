package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Register wires up all API routes on the provided Echo instance. A nil
// notifier keeps change notifications to board streams only.
func Register(e *echo.Echo, store Store, auth Authenticator, deduper Deduper, notifier *Notifier, logger *log.Logger) {
	if logger == nil {
		panic("logger is required")
	}
	if notifier == nil {
		notifier = NewNotifier(nil, logger)
	}
	e.HTTPErrorHandler = HTTPErrorHandler(logger)
	e.GET("/healthz", healthz(store))

	g := e.Group("/api", RequestMetrics(logger), requireUser(auth))

	g.GET("/projects", listProjects(store))
	g.GET("/projects/stats", projectStats(store))
	g.POST("/projects", createProject(store, notifier))
	g.GET("/projects/:id", getProject(store))
	g.PATCH("/projects/:id", updateProject(store, notifier))
	g.DELETE("/projects/:id", deleteProject(store, notifier))
	g.GET("/projects/:id/tasks", projectTasks(store))
	g.GET("/projects/:id/board", projectBoard(store))
	g.GET("/projects/:id/overview", projectOverview(store))
	g.GET("/projects/:id/timeline", projectTimeline(store))
	g.GET("/projects/:id/stream", streamBoard(store, notifier, logger))
	g.GET("/timeline", timeline(store))

	g.GET("/tasks", listTasks(store))
	g.GET("/tasks/stats", taskStats(store))
	g.POST("/tasks", createTask(store, notifier))
	g.GET("/tasks/:id", getTask(store))
	g.PATCH("/tasks/:id", updateTask(store, notifier))
	g.DELETE("/tasks/:id", deleteTask(store, notifier))
	g.PUT("/tasks/:id/status", updateTaskStatus(store, notifier))
	g.GET("/tasks/:id/comments", taskComments(store))
	g.GET("/tasks/:id/files", listFiles(store))
	g.POST("/tasks/:id/files", attachFile(store, notifier))
	g.DELETE("/tasks/:id/files/:fileId", removeFile(store, notifier))

	bulk := g.Group("/tasks/bulk", idempotent(deduper, logger))
	bulk.POST("/move", bulkMove(store, notifier))
	bulk.POST("/assign", bulkAssign(store, notifier))
	bulk.POST("/update", bulkUpdate(store, notifier))
	bulk.POST("/delete", bulkDelete(store, notifier))

	g.GET("/me/tasks", myTasks(store))

	g.GET("/users", listUsers(store))
	g.POST("/users", createUser(store, notifier))
	g.GET("/users/:id", getUser(store))
	g.PATCH("/users/:id", updateUser(store, notifier))
	g.DELETE("/users/:id", deleteUser(store, notifier))
	g.GET("/users/:id/stats", userStats(store))

	g.GET("/comments", listComments(store))
	g.POST("/comments", createComment(store, notifier))
	g.GET("/comments/:id", getComment(store))
	g.PATCH("/comments/:id", updateComment(store, notifier))
	g.DELETE("/comments/:id", deleteComment(store, notifier))
}

func healthz(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := store.ListProjects(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}

func respondList[T any](c echo.Context, items []T) error {
	metricsFrom(c).SetItems(len(items))
	return c.JSON(http.StatusOK, items)
}
