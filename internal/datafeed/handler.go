package datafeed

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	v1 "github.com/anomalab/datafeed/internal/api/v1"
	dferrors "github.com/anomalab/datafeed/internal/core/errors"
	"github.com/anomalab/datafeed/internal/core/storage"
)

const (
	msgInvalidJSON  = "Invalid JSON body"
	msgNotFound     = "Datafeed not found"
	msgJobConflict  = "A datafeed already exists for this job"
	msgInternal     = "Internal error"
	msgInvalidRange = "start and end must be epoch milliseconds"
)

// Handler exposes the datafeed registry over HTTP.
type Handler struct {
	registry *Registry
	service  *Service
}

func NewHandler(registry *Registry, service *Service) *Handler {
	return &Handler{registry: registry, service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.PUT("/v1/datafeeds/:id", h.putDatafeed)
	r.GET("/v1/datafeeds/:id", h.getDatafeed)
	r.GET("/v1/datafeeds", h.listDatafeeds)
	r.DELETE("/v1/datafeeds/:id", h.deleteDatafeed)
	r.POST("/v1/datafeeds/_validate", h.validateDatafeed)
}

func (h *Handler) putDatafeed(c *gin.Context) {
	var config v1.DatafeedConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		slog.Warn("Invalid datafeed body received", "error", err)
		c.JSON(http.StatusBadRequest, dferrors.ErrorResponse{
			ErrorType: dferrors.HttpInvalidJsonError,
			Message:   msgInvalidJSON,
		})
		return
	}
	config.ID = c.Param("id")

	stored, err := h.registry.Put(c.Request.Context(), &config)
	if err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Stored datafeed", "datafeed_id", stored.ID, "job_id", stored.JobID)
	c.JSON(http.StatusOK, stored)
}

func (h *Handler) getDatafeed(c *gin.Context) {
	config, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, config)
}

func (h *Handler) listDatafeeds(c *gin.Context) {
	configs, err := h.registry.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if configs == nil {
		configs = []*v1.DatafeedConfig{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(configs), "datafeeds": configs})
}

func (h *Handler) deleteDatafeed(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	slog.Info("Deleted datafeed", "datafeed_id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// validateDatafeed dry-runs a datafeed config: the body is validated and
// resolved without being persisted. When start and end query parameters
// are present the combined search query for that window is included.
func (h *Handler) validateDatafeed(c *gin.Context) {
	var config v1.DatafeedConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		slog.Warn("Invalid datafeed body received", "error", err)
		c.JSON(http.StatusBadRequest, dferrors.ErrorResponse{
			ErrorType: dferrors.HttpInvalidJsonError,
			Message:   msgInvalidJSON,
		})
		return
	}

	resolution, err := h.service.Resolve(&config)
	if err != nil {
		writeError(c, err)
		return
	}

	response := gin.H{"valid": true, "resolution": resolution}

	if c.Query("start") != "" || c.Query("end") != "" {
		start, startErr := strconv.ParseInt(c.Query("start"), 10, 64)
		end, endErr := strconv.ParseInt(c.Query("end"), 10, 64)
		if startErr != nil || endErr != nil {
			c.JSON(http.StatusBadRequest, dferrors.ErrorResponse{
				ErrorType: dferrors.HttpInvalidConfigError,
				Message:   msgInvalidRange,
			})
			return
		}

		query, err := h.service.BuildSearchQuery(&config, start, end)
		if err != nil {
			writeError(c, err)
			return
		}
		source, err := query.Source()
		if err != nil {
			writeError(c, err)
			return
		}
		response["search_query"] = source
	}

	c.JSON(http.StatusOK, response)
}

// writeError maps domain errors to HTTP responses. InvalidStateErrors are
// integration bugs and intentionally surface as 500s.
func writeError(c *gin.Context, err error) {
	var cfgErr *dferrors.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, dferrors.ErrorResponse{
			ErrorType: dferrors.HttpInvalidConfigError,
			Message:   cfgErr.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, dferrors.ErrorResponse{
			ErrorType: dferrors.HttpDatafeedNotFound,
			Message:   msgNotFound,
		})
	case errors.Is(err, storage.ErrDuplicate):
		c.JSON(http.StatusConflict, dferrors.ErrorResponse{
			ErrorType: dferrors.HttpDuplicateDatafeed,
			Message:   msgJobConflict,
		})
	default:
		slog.Error("Datafeed request failed", "error", err)
		c.JSON(http.StatusInternalServerError, dferrors.ErrorResponse{
			ErrorType: dferrors.HttpInternalError,
			Message:   msgInternal,
		})
	}
}
