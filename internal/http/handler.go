package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/geo-cache-service/internal/domain/dto"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/i18n"
	"github.com/guttosm/geo-cache-service/internal/metrics"
	"github.com/guttosm/geo-cache-service/internal/service"
)

// Handler provides HTTP handlers for lookup and cache administration routes.
type Handler struct {
	lookups     service.Lookuper
	maintenance service.Maintainer
}

// NewHandler creates a new Handler. maintenance may be nil, in which case
// the cache administration routes are not registered.
func NewHandler(lookups service.Lookuper, maintenance service.Maintainer) *Handler {
	return &Handler{
		lookups:     lookups,
		maintenance: maintenance,
	}
}

// Distance handles POST /api/v1/distance.
//
// @Summary      Drive distance between two points
// @Description  Returns the cached drive distance and duration from origin to destination, resolving it through the provider chain on a miss. Coordinates are rounded to the cache precision, so nearby points share an entry. Direction matters.
// @Tags         Lookups
// @Accept       json
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Param        request body dto.DistanceRequest true "Origin and destination"
// @Success      200 {object} dto.SuccessResponse{data=model.Result} "Lookup result"
// @Failure      400 {object} dto.ErrorResponse "Invalid coordinates"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      429 {object} dto.ErrorResponse "Rate limit exceeded"
// @Failure      503 {object} dto.ErrorResponse "Every provider failed"
// @Failure      504 {object} dto.ErrorResponse "Request timed out"
// @Security     ApiKeyAuth
// @Router       /api/v1/distance [post]
func (h *Handler) Distance(c *gin.Context) {
	req, err := BuildRequestAndValidate[dto.DistanceRequest](c)
	if err != nil {
		badRequest(c, err, i18n.ErrKeyValidationCoordinates)
		return
	}
	h.lookup(c, req.ToModel())
}

// Geocode handles POST /api/v1/geocode.
//
// @Summary      Geocode an address
// @Description  Returns the cached coordinates of a free-text address. Addresses are normalized (case, whitespace, trailing punctuation) before keying.
// @Tags         Lookups
// @Accept       json
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Param        request body dto.GeocodeRequest true "Address"
// @Success      200 {object} dto.SuccessResponse{data=model.Result} "Lookup result"
// @Failure      400 {object} dto.ErrorResponse "Blank address"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      429 {object} dto.ErrorResponse "Rate limit exceeded"
// @Failure      503 {object} dto.ErrorResponse "Every provider failed"
// @Failure      504 {object} dto.ErrorResponse "Request timed out"
// @Security     ApiKeyAuth
// @Router       /api/v1/geocode [post]
func (h *Handler) Geocode(c *gin.Context) {
	req, err := BuildRequestAndValidate[dto.GeocodeRequest](c)
	if err != nil {
		badRequest(c, err, i18n.ErrKeyValidationAddress)
		return
	}
	h.lookup(c, req.ToModel())
}

// DistanceBatch handles POST /api/v1/distance/batch.
//
// @Summary      Batch drive distances
// @Description  Resolves up to 1000 distance lookups. Results keep request order and fail independently; misses are sent to providers in as few calls as their batch APIs allow.
// @Tags         Lookups
// @Accept       json
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Param        request body dto.BatchDistanceRequest true "Distance lookups"
// @Success      200 {object} dto.SuccessResponse{data=dto.BatchResponse} "Per-item results"
// @Failure      400 {object} dto.ErrorResponse "Empty or oversized batch"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      429 {object} dto.ErrorResponse "Rate limit exceeded"
// @Security     ApiKeyAuth
// @Router       /api/v1/distance/batch [post]
func (h *Handler) DistanceBatch(c *gin.Context) {
	req, err := BuildRequestAndValidate[dto.BatchDistanceRequest](c)
	if err != nil {
		badRequest(c, err, i18n.ErrKeyValidationBatchSize)
		return
	}
	h.lookupBatch(c, model.KindDistance, req.ToModel())
}

// GeocodeBatch handles POST /api/v1/geocode/batch.
//
// @Summary      Batch geocoding
// @Description  Geocodes up to 1000 addresses. Results keep request order and fail independently.
// @Tags         Lookups
// @Accept       json
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Param        request body dto.BatchGeocodeRequest true "Addresses"
// @Success      200 {object} dto.SuccessResponse{data=dto.BatchResponse} "Per-item results"
// @Failure      400 {object} dto.ErrorResponse "Empty or oversized batch"
// @Failure      401 {object} dto.ErrorResponse "Missing or invalid API key"
// @Failure      429 {object} dto.ErrorResponse "Rate limit exceeded"
// @Security     ApiKeyAuth
// @Router       /api/v1/geocode/batch [post]
func (h *Handler) GeocodeBatch(c *gin.Context) {
	req, err := BuildRequestAndValidate[dto.BatchGeocodeRequest](c)
	if err != nil {
		badRequest(c, err, i18n.ErrKeyValidationBatchSize)
		return
	}
	h.lookupBatch(c, model.KindGeocode, req.ToModel())
}

// Performance handles GET /api/v1/cache/performance.
//
// @Summary      Session cache performance
// @Description  Hit and miss counters of this process since it started. Durable counters over a window are available from /api/v1/cache/stats.
// @Tags         Cache
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Success      200 {object} dto.SuccessResponse{data=model.Performance} "Session counters"
// @Security     ApiKeyAuth
// @Router       /api/v1/cache/performance [get]
func (h *Handler) Performance(c *gin.Context) {
	NewResponseBuilder(c).SuccessOK(h.lookups.GetPerformance())
}

// Stats handles GET /api/v1/cache/stats.
//
// @Summary      Aggregate cache statistics
// @Description  Entry counts, storage size, the hit rate over the window, the extrapolated monthly savings and tuning recommendations. Read only.
// @Tags         Cache
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Param        window query string false "Usage window, e.g. 24h, 90m or 7d" default(24h)
// @Success      200 {object} dto.SuccessResponse{data=model.MaintenanceReport} "Statistics report"
// @Failure      400 {object} dto.ErrorResponse "Invalid window"
// @Failure      503 {object} dto.ErrorResponse "Cache store unavailable"
// @Security     ApiKeyAuth
// @Router       /api/v1/cache/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	builder := NewResponseBuilder(c)

	window, err := service.ParseWindow(c.Query("window"))
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyValidationWindow, err)
		return
	}

	report, err := h.maintenance.Stats(c.Request.Context(), window)
	if err != nil {
		maintenanceError(c, err)
		return
	}
	builder.SuccessOK(report)
}

// Maintenance handles POST /api/v1/cache/maintenance.
//
// @Summary      Run cache maintenance
// @Description  action=run sweeps expired entries, reports statistics and savings, and warms hot routes. action=cleanup only sweeps. Partial failures are listed in the report.
// @Tags         Cache
// @Produce      json
// @Param        X-API-Key header string false "API key (required when keys are configured)"
// @Param        action query string false "run or cleanup" Enums(run, cleanup) default(run)
// @Success      200 {object} dto.SuccessResponse{data=model.MaintenanceReport} "Maintenance report"
// @Failure      400 {object} dto.ErrorResponse "Unknown action"
// @Failure      409 {object} dto.ErrorResponse "A run is already in progress"
// @Failure      503 {object} dto.ErrorResponse "Cache store unavailable"
// @Security     ApiKeyAuth
// @Router       /api/v1/cache/maintenance [post]
func (h *Handler) Maintenance(c *gin.Context) {
	builder := NewResponseBuilder(c)
	ctx := c.Request.Context()

	var (
		report *model.MaintenanceReport
		err    error
	)
	switch action := c.DefaultQuery("action", service.ActionRun); action {
	case service.ActionRun:
		report, err = h.maintenance.RunMaintenance(ctx)
	case service.ActionCleanup:
		report, err = h.maintenance.Cleanup(ctx)
	default:
		builder.Error(http.StatusBadRequest, i18n.ErrKeyValidationAction,
			model.InvalidRequestf("unknown maintenance action %q", action))
		return
	}
	if err != nil {
		maintenanceError(c, err)
		return
	}
	builder.SuccessOK(report)
}

func (h *Handler) lookup(c *gin.Context, req model.Request) {
	result, err := h.lookups.Lookup(c.Request.Context(), req)
	if err != nil {
		lookupError(c, req.Kind, err)
		return
	}
	NewResponseBuilder(c).SuccessOK(result)
}

func (h *Handler) lookupBatch(c *gin.Context, kind model.RequestKind, reqs []model.Request) {
	metrics.RecordBatch(kind.String(), len(reqs))
	results := h.lookups.LookupBatch(c.Request.Context(), reqs)
	NewResponseBuilder(c).SuccessOK(dto.NewBatchResponse(results))
}

// badRequest answers a body that failed to bind or validate. Binding
// failures use the generic body message; validation failures use key.
func badRequest(c *gin.Context, err error, key string) {
	var verr *dto.ValidationError
	if !errors.As(err, &verr) {
		key = i18n.ErrKeyInvalidRequestBody
	}
	NewResponseBuilder(c).Error(http.StatusBadRequest, key, err)
}

func lookupError(c *gin.Context, kind model.RequestKind, err error) {
	builder := NewResponseBuilder(c)
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		key := i18n.ErrKeyValidationCoordinates
		if kind == model.KindGeocode {
			key = i18n.ErrKeyValidationAddress
		}
		builder.Error(http.StatusBadRequest, key, err)
	case errors.Is(err, model.ErrProviderUnavailable):
		builder.ErrorWithCode(http.StatusServiceUnavailable, dto.ErrCodeProviderUnavailable, i18n.ErrKeyProviderUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		builder.Error(http.StatusGatewayTimeout, i18n.ErrKeyTimeout, err)
	default:
		builder.Error(http.StatusInternalServerError, i18n.ErrKeyInternalError, err)
	}
}

func maintenanceError(c *gin.Context, err error) {
	builder := NewResponseBuilder(c)
	switch {
	case errors.Is(err, model.ErrMaintenanceInProgress):
		builder.Error(http.StatusConflict, i18n.ErrKeyMaintenanceInProgress, err)
	case errors.Is(err, model.ErrStore):
		builder.Error(http.StatusServiceUnavailable, i18n.ErrKeyStoreUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		builder.Error(http.StatusGatewayTimeout, i18n.ErrKeyTimeout, err)
	default:
		builder.Error(http.StatusInternalServerError, i18n.ErrKeyInternalError, err)
	}
}
