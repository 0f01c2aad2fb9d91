package handler

import (
	resourceapp "github.com/apigw/backend/internal/application/resource"
	"github.com/apigw/backend/internal/interfaces/http/dto"
	"github.com/apigw/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// LeadHandler serves the branch-filtered lead listing. The branch filter is
// whatever the authorization pipeline decided; the handler never consults
// the branch_id parameter itself.
type LeadHandler struct {
	BaseHandler
	service *resourceapp.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(service *resourceapp.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// List returns the tenant's leads under the effective branch filter
func (h *LeadHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.service.List(
		c.Request.Context(),
		middleware.GetTenantID(c),
		middleware.GetEffectiveBranchID(c),
		req.ToFilter(),
	)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
