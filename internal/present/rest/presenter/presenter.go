package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type reconnectResponse struct {
	Error       string                `json:"error"`
	Stage       domain.ReconnectStage `json:"stage"`
	NodeID      string                `json:"nodeId"`
	OldParentID string                `json:"oldParentId,omitempty"`
	NewParentID string                `json:"newParentId"`
	Restored    bool                  `json:"restored"`
	Orphaned    bool                  `json:"orphaned"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func BadRequest(c echo.Context, err error) error {
	slog.InfoContext(c.Request().Context(), "bad request", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.InfoContext(c.Request().Context(), "bad request", slog.String("error", msg), slog.String("module", "presenter"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(c.Request().Context(), "internal error", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// Report answers a settled sync: 200 when every call succeeded, 207 with the same
// report when some failed.
func Report(c echo.Context, report *domain.SyncReport, err error) error {
	if err == nil {
		return OK(c, report)
	}
	if domain.IsPartial(err) && report != nil {
		slog.WarnContext(c.Request().Context(), "partial failure", slog.String("error", err.Error()), slog.String("module", "presenter"))
		return c.JSON(http.StatusMultiStatus, report)
	}
	return Error(c, err)
}

// Error maps err onto a status code.
func Error(c echo.Context, err error) error {
	var reconnect *domain.ReconnectError
	if errors.As(err, &reconnect) {
		slog.ErrorContext(c.Request().Context(), "reconnect failed", slog.String("error", err.Error()), slog.String("module", "presenter"))
		return c.JSON(http.StatusBadGateway, reconnectResponse{
			Error:       err.Error(),
			Stage:       reconnect.Stage,
			NodeID:      reconnect.NodeID,
			OldParentID: reconnect.OldParentID,
			NewParentID: reconnect.NewParentID,
			Restored:    reconnect.Restored,
			Orphaned:    reconnect.Orphaned(),
		})
	}

	if errors.Is(err, domain.ErrNotFound) {
		return NotFound(c, err.Error())
	}
	if domain.IsInvariantViolation(err) {
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}

	var apiErr *taxonomy.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 600 {
		if apiErr.Status >= 500 {
			slog.ErrorContext(c.Request().Context(), "taxonomy error", slog.String("error", err.Error()), slog.String("module", "presenter"))
		}
		return c.JSON(apiErr.Status, errorResponse{Error: err.Error()})
	}

	return InternalError(c, err)
}
