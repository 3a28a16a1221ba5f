package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
	"workline-sync/tasksync"
)

const requestBodyMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc SyncService, maint Maintainer, auth Authenticator, kv Pinger, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(svc, auth, logger))
	e.GET("/api/tasks/my", getMyTasks(svc, auth))
	e.POST("/api/tasks", postTask(svc, auth))
	e.PUT("/api/tasks/:id/status", putTaskStatus(svc, auth))
	e.DELETE("/api/tasks/:id", deleteTask(svc, auth))
	e.GET("/api/stats", getStats(svc, auth))
	e.GET("/api/stats/my", getMyStats(svc, auth))
	e.POST("/api/maintenance/repair", postRepair(maint, auth))
	e.DELETE("/api/maintenance/purge", deletePurge(maint, auth))
	e.GET("/healthz", healthz(kv))
}

type tasksResponse struct {
	Tasks  []domain.Task   `json:"tasks"`
	Source tasksync.Source `json:"source"`
}

type taskDraftRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assignedTo"`
	DueDate     string `json:"dueDate"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func healthz(kv Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if kv != nil {
			if err := kv.Ping(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(svc SyncService, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		tasks, source := svc.ListAll(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		metrics.SetTasksReturned(len(tasks))
		metrics.SetSource(string(source))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks, Source: source})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getMyTasks(svc SyncService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userKey, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, source := svc.ListMine(c.Request().Context(), userKey)
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks, Source: source})
	}
}

func postTask(svc SyncService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var draft taskDraftRequest
		if err := decodeBody(c.Request().Body, &draft); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if draft.Title == "" {
			return c.String(http.StatusBadRequest, "title is required")
		}

		created := svc.Create(c.Request().Context(), domain.Task{
			Title:       draft.Title,
			Description: draft.Description,
			Status:      draft.Status,
			AssignedTo:  draft.AssignedTo,
			DueDate:     draft.DueDate,
		})
		return c.JSON(http.StatusCreated, created)
	}
}

func putTaskStatus(svc SyncService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req statusUpdateRequest
		if err := decodeBody(c.Request().Body, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		task := svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc SyncService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
			if errors.Is(err, tasksync.ErrDeleteFailed) {
				return c.String(http.StatusBadGateway, "task delete failed")
			}
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getStats(svc SyncService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, svc.AdminStats(c.Request().Context()))
	}
}

func getMyStats(svc SyncService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userKey, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, svc.MyStats(c.Request().Context(), userKey))
	}
}

func postRepair(maint Maintainer, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		fixed := maint.FixAll(c.Request().Context())
		return c.JSON(http.StatusOK, map[string]int{"fixed": fixed})
	}
}

func deletePurge(maint Maintainer, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserKeyFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if !maint.PurgeAll(c.Request().Context()) {
			return c.String(http.StatusInternalServerError, "purge failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func decodeBody(body io.Reader, out any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(body, requestBodyMaxSize))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
