package handler

import (
	auditapp "github.com/apigw/backend/internal/application/audit"
	"github.com/apigw/backend/internal/interfaces/http/dto"
	"github.com/apigw/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuditHandler serves read access to the tenant's audit log
type AuditHandler struct {
	BaseHandler
	service *auditapp.QueryService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(service *auditapp.QueryService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns the tenant's audit entries
func (h *AuditHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), middleware.GetTenantID(c), req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
