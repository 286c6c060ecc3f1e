package audit

import (
	"net/http"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/pkg/response"
	"billhub-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the append-only audit trail, read side only.
// There is deliberately no write or delete surface.
type AuditHandler struct {
	repo *postgres.AuditRepository
}

func NewAuditHandler(repo *postgres.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) List(c *gin.Context) {
	var filters audit.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "Invalid query parameters", err)
		return
	}

	entries, total, pages, err := h.repo.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", gin.H{
		"entries":    entries,
		"total":      total,
		"page_count": pages,
	})
}
