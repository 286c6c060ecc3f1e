package invoice

import (
	"net/http"
	"strconv"

	"billhub-service/internal/domain/invoice"
	"billhub-service/internal/middleware"
	"billhub-service/internal/pkg/response"
	invoicesvc "billhub-service/internal/service/invoice"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	svc *invoicesvc.InvoiceService
}

func NewInvoiceHandler(svc *invoicesvc.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid invoice id", err)
		return
	}

	inv, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err, "Invoice not found")
		return
	}
	response.Success(c, http.StatusOK, "OK", inv)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	var filters invoice.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "Invalid query parameters", err)
		return
	}

	invoices, total, pages, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", gin.H{
		"invoices":   invoices,
		"total":      total,
		"page_count": pages,
	})
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoice.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid invoice payload", err)
		return
	}

	inv, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusCreated, "Invoice created", inv)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid invoice id", err)
		return
	}

	var req invoice.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid invoice payload", err)
		return
	}

	inv, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Invoice updated", inv)
}

// Transition moves an invoice through its lifecycle (draft, sent, paid,
// void). Illegal moves report as validation failures.
func (h *InvoiceHandler) Transition(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid invoice id", err)
		return
	}

	var req invoice.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Target status is required", err)
		return
	}

	inv, err := h.svc.Transition(c.Request.Context(), middleware.ActorFrom(c), id, req.Status)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Invoice status updated", inv)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid invoice id", err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Invoice deleted", nil)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
