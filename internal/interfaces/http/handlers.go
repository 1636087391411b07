package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/application/service"
	"github.com/workdeck/spending/internal/application/workflow"
	"github.com/workdeck/spending/internal/domain/entity"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	store           service.SpendingStore
	exporter        Exporter
	receipts        port.ReceiptStorage
	maxReceiptBytes int64
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	store service.SpendingStore,
	exporter Exporter,
	receipts port.ReceiptStorage,
	maxReceiptBytes int64,
	logger Logger,
) *Handlers {
	if maxReceiptBytes <= 0 {
		maxReceiptBytes = 10 << 20
	}
	return &Handlers{
		store:           store,
		exporter:        exporter,
		receipts:        receipts,
		maxReceiptBytes: maxReceiptBytes,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload of POST /api/requests
type CreateRequestBody struct {
	Type string `json:"type" binding:"required"`
}

// RequestDetail is a request plus the lifecycle actions the caller may take on it
type RequestDetail struct {
	*entity.SpendingRequest
	AllowedActions []domainwf.Trigger `json:"allowedActions"`
}

// DenyBody is the payload of POST /api/requests/:id/deny
type DenyBody struct {
	Reason  string `json:"reason" binding:"required"`
	Comment string `json:"comment"`
}

// BulkApproveBody is the payload of POST /api/requests/bulk-approve
type BulkApproveBody struct {
	IDs     []string `json:"ids" binding:"required,min=1"`
	Comment string   `json:"comment"`
}

// BulkApproveResponse reports per-id outcomes of a bulk approval
type BulkApproveResponse struct {
	Approved []string          `json:"approved"`
	Failed   map[string]string `json:"failed"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// GetCurrentUser handles GET /api/me
func (h *Handlers) GetCurrentUser(c *gin.Context) {
	success(c, h.store.CurrentUser(c.Request.Context()))
}

// GetReference handles GET /api/reference
func (h *Handlers) GetReference(c *gin.Context) {
	success(c, h.store.Reference(c.Request.Context()))
}

// ListRequests handles GET /api/requests?type=&status=&user=&q=
func (h *Handlers) ListRequests(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, h.store.ListRequests(c.Request.Context(), filter))
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if !h.bind(c, &body) {
		return
	}
	t, err := parseType(body.Type)
	if err != nil {
		h.respondError(c, err)
		return
	}

	req, err := h.store.CreateRequest(c.Request.Context(), t)
	if err != nil {
		h.respondError(c, err)
		return
	}
	setETag(c, req)
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	ctx := c.Request.Context()
	req, err := h.store.GetRequest(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	actions, err := h.store.AllowedActions(ctx, req.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	setETag(c, req)
	success(c, RequestDetail{SpendingRequest: req, AllowedActions: actions})
}

// UpdateRequest handles PATCH /api/requests/:id
func (h *Handlers) UpdateRequest(c *gin.Context) {
	var update service.RequestUpdate
	if !h.bind(c, &update) {
		return
	}
	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	req, err := h.store.UpdateRequest(c.Request.Context(), c.Param("id"), update, opts...)
	h.respondRequest(c, req, err)
}

// DeleteRequest handles DELETE /api/requests/:id
func (h *Handlers) DeleteRequest(c *gin.Context) {
	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	if err := h.store.DeleteRequest(c.Request.Context(), c.Param("id"), opts...); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.store.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, history)
}

// Submit handles POST /api/requests/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.SubmitRequest(c.Request.Context(), id, opts...)
	})
}

// Approve handles POST /api/requests/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	var cmd workflow.ApproveCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.ApproveRequest(c.Request.Context(), id, cmd, opts...)
	})
}

// Deny handles POST /api/requests/:id/deny
func (h *Handlers) Deny(c *gin.Context) {
	var body DenyBody
	if !h.bind(c, &body) {
		return
	}
	cmd := workflow.DenyCommand{Reason: body.Reason, Comment: body.Comment}
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.DenyRequest(c.Request.Context(), id, cmd, opts...)
	})
}

// StartProcessing handles POST /api/requests/:id/start-processing
func (h *Handlers) StartProcessing(c *gin.Context) {
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.StartProcessing(c.Request.Context(), id, opts...)
	})
}

// MarkOrdered handles POST /api/requests/:id/mark-ordered
func (h *Handlers) MarkOrdered(c *gin.Context) {
	var cmd workflow.MarkOrderedCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.MarkAsOrdered(c.Request.Context(), id, cmd, opts...)
	})
}

// MarkReceived handles POST /api/requests/:id/mark-received
func (h *Handlers) MarkReceived(c *gin.Context) {
	var cmd workflow.MarkReceivedCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.MarkAsReceived(c.Request.Context(), id, cmd, opts...)
	})
}

// MarkFinalized handles POST /api/requests/:id/mark-finalized
func (h *Handlers) MarkFinalized(c *gin.Context) {
	var cmd workflow.MarkFinalizedCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.MarkAsFinalized(c.Request.Context(), id, cmd, opts...)
	})
}

// Reopen handles POST /api/requests/:id/reopen
func (h *Handlers) Reopen(c *gin.Context) {
	h.transition(c, func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error) {
		return h.store.ReopenRequest(c.Request.Context(), id, opts...)
	})
}

// BulkApprove handles POST /api/requests/bulk-approve.
// Partial failures still answer 200; the body lists each failure.
func (h *Handlers) BulkApprove(c *gin.Context) {
	var body BulkApproveBody
	if !h.bind(c, &body) {
		return
	}

	result := h.store.BulkApprove(c.Request.Context(), body.IDs, workflow.ApproveCommand{Comment: body.Comment})
	failed := make(map[string]string, len(result.Failed))
	for id, err := range result.Failed {
		failed[id] = err.Error()
	}
	success(c, BulkApproveResponse{Approved: result.Approved, Failed: failed})
}

// AddLineItem handles POST /api/requests/:id/items
func (h *Handlers) AddLineItem(c *gin.Context) {
	var in service.LineItemInput
	if !h.bind(c, &in) {
		return
	}
	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	req, err := h.store.AddLineItem(c.Request.Context(), c.Param("id"), in, opts...)
	h.respondRequest(c, req, err)
}

// UpdateLineItem handles PATCH /api/requests/:id/items/:itemId
func (h *Handlers) UpdateLineItem(c *gin.Context) {
	var update service.LineItemUpdate
	if !h.bind(c, &update) {
		return
	}
	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	req, err := h.store.UpdateLineItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), update, opts...)
	h.respondRequest(c, req, err)
}

// DeleteLineItem handles DELETE /api/requests/:id/items/:itemId
func (h *Handlers) DeleteLineItem(c *gin.Context) {
	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	req, err := h.store.DeleteLineItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), opts...)
	h.respondRequest(c, req, err)
}

// AttachReceipt handles multipart POST /api/requests/:id/items/:itemId/receipt with field "file"
func (h *Handlers) AttachReceipt(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxReceiptBytes+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: multipart field \"file\" is required", service.ErrInvalidInput))
		return
	}
	if fh.Size > h.maxReceiptBytes {
		h.respondError(c, fmt.Errorf("%w: file exceeds %d bytes", service.ErrInvalidReceipt, h.maxReceiptBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidReceipt, err))
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", service.ErrInvalidReceipt, err))
		return
	}

	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	req, err := h.store.AttachReceipt(c.Request.Context(), c.Param("id"), c.Param("itemId"), fh.Filename, content, opts...)
	h.respondRequest(c, req, err)
}

// DownloadReceipt serves a stored receipt file
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	if h.receipts == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "receipts are not enabled"})
		return
	}

	content, err := h.receipts.Read(c.Request.Context(), c.Request.URL.Path)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "receipt not found"})
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(content).String(), content)
}

// PendingApprovals handles GET /api/approvals/pending
func (h *Handlers) PendingApprovals(c *gin.Context) {
	success(c, h.store.PendingApprovals(c.Request.Context()))
}

// ProcessingQueue handles GET /api/processing/:type
func (h *Handlers) ProcessingQueue(c *gin.Context) {
	t, err := parseType(c.Param("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	queue, err := h.store.ProcessingQueue(c.Request.Context(), t)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, queue)
}

// ListSuppliers handles GET /api/suppliers
func (h *Handlers) ListSuppliers(c *gin.Context) {
	success(c, h.store.Suppliers(c.Request.Context()))
}

// AddSupplier handles POST /api/suppliers
func (h *Handlers) AddSupplier(c *gin.Context) {
	var in service.SupplierInput
	if !h.bind(c, &in) {
		return
	}
	sup, err := h.store.AddSupplier(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: sup})
}

// ExportRequests handles GET /api/requests/export with the same filters as ListRequests
func (h *Handlers) ExportRequests(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "export is not enabled"})
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, h.store.ListRequests(c.Request.Context(), filter)); err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("spending-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handlers) transition(c *gin.Context, fn func(id string, opts []service.MutationOption) (*entity.SpendingRequest, error)) {
	opts, ok := h.versionOptions(c)
	if !ok {
		return
	}
	req, err := fn(c.Param("id"), opts)
	h.respondRequest(c, req, err)
}

func (h *Handlers) respondRequest(c *gin.Context, req *entity.SpendingRequest, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	setETag(c, req)
	success(c, req)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

func (h *Handlers) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// bindOptional accepts an empty body for commands whose fields are all optional
func (h *Handlers) bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, dst)
}

// versionOptions turns an If-Match header into WithExpectedVersion
func (h *Handlers) versionOptions(c *gin.Context) ([]service.MutationOption, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "If-Match must carry a request version"})
		return nil, false
	}
	return []service.MutationOption{service.WithExpectedVersion(v)}, true
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func setETag(c *gin.Context, req *entity.SpendingRequest) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(req.Version, 10)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidLineItem),
		errors.Is(err, service.ErrInvalidReceipt),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseType(s string) (entity.SpendingType, error) {
	for _, t := range []entity.SpendingType{entity.SpendingTypeExpense, entity.SpendingTypePurchase} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown request type %q", service.ErrInvalidInput, s)
}

func parseFilter(c *gin.Context) (service.RequestFilter, error) {
	filter := service.RequestFilter{
		UserID: c.Query("user"),
		Search: c.Query("q"),
	}
	if raw := c.Query("type"); raw != "" {
		t, err := parseType(raw)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, entity.Status(s))
			}
		}
	}
	return filter, nil
}
