package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/labstack/echo/v4"

	"ephemera/internal/application/changefeed"
	"ephemera/internal/application/reconcile"
	"ephemera/internal/domain/dto"
	"ephemera/internal/domain/model"
)

const defaultOrphanLimit = 100

type OrphanLister interface {
	List(ctx context.Context, limit int64) ([]model.Orphan, error)
}

type OrphanRetrier interface {
	RetryOrphans(ctx context.Context, limit int64) (*reconcile.RetryResult, error)
}

type OrphanScanner interface {
	Scan(ctx context.Context) (*reconcile.ScanResult, error)
}

type WatcherStatus interface {
	Status() changefeed.Status
}

// AdminHandler serves the operator endpoints for the orphan ledger, scans
// and the change feed.
type AdminHandler struct {
	orphans OrphanLister
	retrier OrphanRetrier
	scanner OrphanScanner
	watcher WatcherStatus
}

func NewAdminHandler(orphans OrphanLister, retrier OrphanRetrier, scanner OrphanScanner,
	watcher WatcherStatus,
) *AdminHandler {
	return &AdminHandler{
		orphans: orphans,
		retrier: retrier,
		scanner: scanner,
		watcher: watcher,
	}
}

// HandleListOrphans handles GET /admin/orphans?limit=n.
func (h *AdminHandler) HandleListOrphans(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return badRequest(c, "limit must be a positive number")
	}

	orphans, err := h.orphans.List(c.Request().Context(), limit)
	if err != nil {
		logger.Error("failed to list orphans", "err", err)

		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list orphans"})
	}

	descriptors := make([]dto.OrphanDescriptor, 0, len(orphans))
	for i := range orphans {
		descriptors = append(descriptors, dto.NewOrphanDescriptor(&orphans[i]))
	}

	return c.JSON(http.StatusOK, descriptors)
}

// HandleRetryOrphans handles POST /admin/orphans/retry?limit=n.
func (h *AdminHandler) HandleRetryOrphans(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return badRequest(c, "limit must be a positive number")
	}

	result, err := h.retrier.RetryOrphans(c.Request().Context(), limit)
	if err != nil {
		logger.Error("orphan retry failed", "err", err)

		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "orphan retry failed"})
	}

	return c.JSON(http.StatusOK, result)
}

// HandleScan handles POST /admin/scan and waits for the scan to finish.
func (h *AdminHandler) HandleScan(c echo.Context) error {
	result, err := h.scanner.Scan(c.Request().Context())
	if err != nil {
		logger.Error("orphan scan failed", "err", err)

		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "orphan scan failed"})
	}

	return c.JSON(http.StatusOK, result)
}

// HandleWatcher handles GET /admin/watcher.
func (h *AdminHandler) HandleWatcher(c echo.Context) error {
	return c.JSON(http.StatusOK, h.watcher.Status())
}

func limitParam(c echo.Context) (int64, error) {
	v := c.QueryParam("limit")
	if v == "" {
		return defaultOrphanLimit, nil
	}

	limit, err := strconv.ParseInt(v, 10, 64)
	if err != nil || limit <= 0 {
		return 0, strconv.ErrSyntax
	}

	return limit, nil
}
