// Package httpapi exposes quotations and the auto-quotation trigger surface over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/quoteflow/internal/config"
	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// Handler serves the quotation and automation endpoints.
type Handler struct {
	quotations primary.QuotationService
	automation primary.AutomationService
	inventory  secondary.InventoryRepository
	logger     logrus.FieldLogger
}

// NewHandler creates a Handler.
func NewHandler(
	quotations primary.QuotationService,
	automation primary.AutomationService,
	inventory secondary.InventoryRepository,
	logger logrus.FieldLogger,
) *Handler {
	return &Handler{
		quotations: quotations,
		automation: automation,
		inventory:  inventory,
		logger:     logger,
	}
}

// CreateQuotation handles POST /v1/quotations.
func (h *Handler) CreateQuotation(c *gin.Context) {
	var req CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	for i, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			badRequest(c, "item "+strconv.Itoa(i+1)+" needs a product_id and a positive quantity")
			return
		}
	}

	resp, err := h.quotations.CreateQuotation(c.Request.Context(), primary.CreateQuotationRequest{
		SupplierID: req.SupplierID,
		Category:   req.Category,
		Items:      req.Items,
	})
	if err != nil {
		h.fail(c, "CreateQuotation", err)
		return
	}

	c.JSON(http.StatusCreated, fromQuotation(resp.Quotation))
}

// ListQuotations handles GET /v1/quotations.
func (h *Handler) ListQuotations(c *gin.Context) {
	filters := primary.QuotationFilters{
		Status:     strings.ToUpper(c.Query("status")),
		SupplierID: c.Query("supplier_id"),
		OpenOnly:   c.Query("open") == "true",
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		filters.Limit = n
	}

	quotations, err := h.quotations.ListQuotations(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, "ListQuotations", err)
		return
	}

	out := make([]QuotationResponse, 0, len(quotations))
	for _, q := range quotations {
		out = append(out, fromQuotation(q))
	}
	c.JSON(http.StatusOK, out)
}

// GetQuotation handles GET /v1/quotations/:id.
func (h *Handler) GetQuotation(c *gin.Context) {
	q, err := h.quotations.GetQuotation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "GetQuotation", err)
		return
	}
	c.JSON(http.StatusOK, fromQuotation(q))
}

// GetSnapshot handles GET /v1/quotations/:id/snapshot.
func (h *Handler) GetSnapshot(c *gin.Context) {
	snap, err := h.quotations.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "GetSnapshot", err)
		return
	}
	c.JSON(http.StatusOK, fromSnapshot(*snap))
}

// ApplyEvent handles POST /v1/quotations/:id/events. With ?dry_run=true the event
// is only checked.
func (h *Handler) ApplyEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ev, err := quotation.ParseEvent(req.Event, req.Payload)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	if c.Query("dry_run") == "true" {
		check, err := h.quotations.CanTransition(ctx, id, ev)
		if err != nil {
			h.fail(c, "ApplyEvent", err)
			return
		}
		if !check.Valid {
			h.fail(c, "ApplyEvent", check.Err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": true, "target": string(check.Target)})
		return
	}

	resp, err := h.quotations.Transition(ctx, primary.TransitionRequest{QuotationID: id, Event: ev})
	if err != nil {
		h.fail(c, "ApplyEvent", err)
		return
	}
	c.JSON(http.StatusOK, fromSnapshot(resp.Snapshot))
}

// DeleteQuotation handles DELETE /v1/quotations/:id.
func (h *Handler) DeleteQuotation(c *gin.Context) {
	if err := h.quotations.DeleteQuotation(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "DeleteQuotation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReceiveStockEvent handles POST /v1/stock-events, the push form of the event source.
func (h *Handler) ReceiveStockEvent(c *gin.Context) {
	var ev reorder.StockEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome := h.automation.HandleStockEvent(c.Request.Context(), ev)
	status := http.StatusAccepted
	if outcome != primary.OutcomeQueued && outcome != primary.OutcomeLockFailedOpen {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"outcome": string(outcome), "pending": h.automation.PendingCount()})
}

// Trigger handles POST /v1/automation/trigger.
func (h *Handler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	var items []reorder.InventoryItem
	switch {
	case len(req.Items) > 0:
		for _, it := range req.Items {
			items = append(items, it.toInventoryItem())
		}
	case len(req.ProductIDs) > 0:
		for _, id := range req.ProductIDs {
			item, err := h.inventory.GetByProductID(ctx, id)
			if err != nil {
				h.fail(c, "Trigger", err)
				return
			}
			if item == nil {
				c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: "inventory item " + id + " not found"})
				return
			}
			items = append(items, *item)
		}
	default:
		all, err := h.inventory.List(ctx)
		if err != nil {
			h.fail(c, "Trigger", err)
			return
		}
		items = all
	}

	resp, err := h.automation.TriggerCheck(ctx, items)
	if err != nil {
		h.fail(c, "Trigger", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evaluated": resp.Evaluated,
		"queued":    resp.Queued,
		"dropped":   resp.Dropped,
		"pending":   h.automation.PendingCount(),
	})
}

// Flush handles POST /v1/automation/flush.
func (h *Handler) Flush(c *gin.Context) {
	result, err := h.automation.FlushPending(c.Request.Context())
	if err != nil {
		h.fail(c, "Flush", err)
		return
	}
	created := result.Created
	if created == nil {
		created = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"processed":  result.Processed,
		"created":    created,
		"skipped":    result.Skipped,
		"duplicates": result.Duplicates,
		"failures":   result.Failures,
	})
}

// Pending handles GET /v1/automation/pending.
func (h *Handler) Pending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": h.automation.PendingCount()})
}

// fail maps service errors onto status codes. Guard violations are 422 with
// their structured fields, missing records 404 and lost update races 409.
func (h *Handler) fail(c *gin.Context, funcName string, err error) {
	var violation *quotation.GuardViolation
	switch {
	case errors.As(err, &violation):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    string(violation.Code),
			Message: violation.Reason,
			State:   string(violation.State),
			Event:   string(violation.Event),
		})
	case errors.Is(err, secondary.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, secondary.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	default:
		config.LogError(h.logger, "httpapi", funcName, c.Request.Method+" "+c.FullPath(), gin.H{"params": c.Params}, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: msg})
}
