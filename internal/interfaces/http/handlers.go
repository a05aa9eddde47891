package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/asset-registry/internal/application/service"
	"github.com/garyjia/asset-registry/internal/application/workflow"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// AssetView is an asset plus the workflow actions the caller may take on it
type AssetView struct {
	*entity.AssetRecord
	PermittedActions []string `json:"permitted_actions"`
}

// TransitionRequest is the body of POST /assets/:id/transitions
type TransitionRequest struct {
	Action          string `json:"action" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

// BulkApproveRequest is the body of POST /assets/bulk-approve
type BulkApproveRequest struct {
	IDs []string `json:"ids"`
}

// BulkResultResponse reports the outcome for one record of a bulk approval
type BulkResultResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ListAssetsRequest represents query parameters for listing assets
type ListAssetsRequest struct {
	Status     string `form:"status"`
	MinistryID string `form:"ministry_id"`
	AgencyID   string `form:"agency_id"`
	UploadedBy string `form:"uploaded_by"`
	Category   string `form:"category"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// MinistryRequest is the body of PUT /ministries/:id
type MinistryRequest struct {
	Name                   string `json:"name"`
	RequiresMinistryReview bool   `json:"requires_ministry_review"`
}

// HealthCheck handles GET /health. Any unhealthy dependency yields 503.
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	healthy := true
	if h.services.Health != nil {
		healthy, resp.Components = h.services.Health.CheckHealth(c.Request.Context())
	}
	if !healthy {
		resp.Status = "unhealthy"
		h.logger.Error("Health check failed", "components", resp.Components)
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    resp,
			Error:   "service unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// CreateAsset handles POST /api/v1/assets
func (h *Handlers) CreateAsset(c *gin.Context) {
	actor, _ := actorFrom(c)

	var input service.AssetInput
	if !h.bindJSON(c, &input) {
		return
	}

	asset, err := h.services.Assets.CreateAsset(c.Request.Context(), actor, input)
	if err != nil {
		h.respondError(c, "Failed to create asset", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: asset})
}

// ListAssets handles GET /api/v1/assets
func (h *Handlers) ListAssets(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req ListAssetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	assets, err := h.services.Assets.ListAssets(c.Request.Context(), actor, entity.AssetFilter{
		Status:     req.Status,
		MinistryID: req.MinistryID,
		AgencyID:   req.AgencyID,
		UploadedBy: req.UploadedBy,
		Category:   req.Category,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		h.respondError(c, "Failed to list assets", err)
		return
	}
	if assets == nil {
		assets = []*entity.AssetRecord{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: assets})
}

// GetAsset handles GET /api/v1/assets/:id
func (h *Handlers) GetAsset(c *gin.Context) {
	actor, _ := actorFrom(c)

	asset, err := h.services.Assets.GetAsset(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get asset", err)
		return
	}

	actions, err := h.services.Assets.PermittedActions(c.Request.Context(), actor, asset)
	if err != nil {
		h.respondError(c, "Failed to get asset", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: AssetView{AssetRecord: asset, PermittedActions: actions}})
}

// EditAsset handles PUT /api/v1/assets/:id. Editing a rejected record resubmits it.
func (h *Handlers) EditAsset(c *gin.Context) {
	actor, _ := actorFrom(c)

	var input service.AssetInput
	if !h.bindJSON(c, &input) {
		return
	}

	asset, err := h.services.Assets.EditAsset(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		h.respondError(c, "Failed to edit asset", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: asset})
}

// Transition handles POST /api/v1/assets/:id/transitions
func (h *Handlers) Transition(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var payload *workflow.Payload
	if req.RejectionReason != "" {
		payload = &workflow.Payload{RejectionReason: req.RejectionReason}
	}

	asset, err := h.services.Assets.Transition(c.Request.Context(), actor, c.Param("id"), req.Action, payload)
	if err != nil {
		h.respondError(c, "Failed to apply transition", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: asset})
}

// BulkApprove handles POST /api/v1/assets/bulk-approve. The response is 200
// with per-record outcomes even when some records fail.
func (h *Handlers) BulkApprove(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req BulkApproveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	results := h.services.Assets.BulkApprove(c.Request.Context(), actor, req.IDs)

	out := make([]BulkResultResponse, len(results))
	for i, r := range results {
		out[i] = BulkResultResponse{ID: r.ID, Success: r.Success}
		if r.Error != nil {
			out[i].Error = r.Error.Error()
			out[i].Code = string(apperr.KindOf(r.Error))
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// AssetHistory handles GET /api/v1/assets/:id/audit
func (h *Handlers) AssetHistory(c *gin.Context) {
	actor, _ := actorFrom(c)

	events, err := h.services.Assets.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get asset history", err)
		return
	}
	if events == nil {
		events = []*entity.AuditEvent{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// Summary handles GET /api/v1/reports/summary
func (h *Handlers) Summary(c *gin.Context) {
	actor, _ := actorFrom(c)

	summary, err := h.services.Assets.Summary(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, "Failed to summarise assets", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// ExportAssets handles GET /api/v1/reports/assets.xlsx
func (h *Handlers) ExportAssets(c *gin.Context) {
	actor, _ := actorFrom(c)

	var buf bytes.Buffer
	if err := h.services.Reports.ExportAssets(c.Request.Context(), actor, &buf); err != nil {
		h.respondError(c, "Failed to export assets", err)
		return
	}

	filename := fmt.Sprintf("assets-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListMinistries handles GET /api/v1/ministries
func (h *Handlers) ListMinistries(c *gin.Context) {
	ministries, err := h.services.Ministries.ListMinistries(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list ministries", err)
		return
	}
	if ministries == nil {
		ministries = []*entity.Ministry{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ministries})
}

// GetMinistry handles GET /api/v1/ministries/:id
func (h *Handlers) GetMinistry(c *gin.Context) {
	ministry, err := h.services.Ministries.GetMinistry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get ministry", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ministry})
}

// PutMinistry handles PUT /api/v1/ministries/:id
func (h *Handlers) PutMinistry(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req MinistryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ministry, err := h.services.Ministries.UpsertMinistry(c.Request.Context(), actor, entity.Ministry{
		ID:                     c.Param("id"),
		Name:                   req.Name,
		RequiresMinistryReview: req.RequiresMinistryReview,
	})
	if err != nil {
		h.respondError(c, "Failed to upsert ministry", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ministry})
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return false
	}
	return true
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindInvalidTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, msg string, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
		})
		return
	}

	h.logger.Info(msg, "path", c.Request.URL.Path, "kind", string(appErr.Kind), "error", err)

	message := appErr.Error()
	if appErr.Kind == apperr.KindConflict {
		message = apperr.ErrConflict.Message
	}
	c.JSON(statusFor(appErr.Kind), Response{
		Success: false,
		Error:   message,
		Code:    string(appErr.Kind),
	})
}
