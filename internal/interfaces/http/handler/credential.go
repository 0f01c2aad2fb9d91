package handler

import (
	"time"

	credentialapp "github.com/apigw/backend/internal/application/credential"
	"github.com/apigw/backend/internal/interfaces/http/dto"
	"github.com/apigw/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CredentialHandler exposes the credential management API. Every route sits
// behind the credentials:manage scope; the tenant always comes from the
// authenticated credential, never from the request.
type CredentialHandler struct {
	BaseHandler
	service *credentialapp.CredentialService
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(service *credentialapp.CredentialService) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// CreateCredentialRequest is the request body for issuing a credential
type CreateCredentialRequest struct {
	Name         string     `json:"name" binding:"required,max=200"`
	ScopeType    string     `json:"scope_type" binding:"required,oneof=tenant branch"`
	BranchID     *uuid.UUID `json:"branch_id"`
	Scopes       []string   `json:"scopes" binding:"required,min=1"`
	RateLimitRPM int        `json:"rate_limit_rpm" binding:"omitempty,min=1"`
	RateLimitRPD int        `json:"rate_limit_rpd" binding:"omitempty,min=1"`
	AllowedIPs   []string   `json:"allowed_ips"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// UpdateCredentialRequest is the request body for updating a credential
type UpdateCredentialRequest struct {
	Name         *string    `json:"name" binding:"omitempty,max=200"`
	Scopes       []string   `json:"scopes" binding:"omitempty,min=1"`
	RateLimitRPM *int       `json:"rate_limit_rpm" binding:"omitempty,min=1"`
	RateLimitRPD *int       `json:"rate_limit_rpd" binding:"omitempty,min=1"`
	AllowedIPs   []string   `json:"allowed_ips"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Create issues a new credential. The response carries the plaintext key
// exactly once.
func (h *CredentialHandler) Create(c *gin.Context) {
	var req CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	issued, err := h.service.Create(c.Request.Context(), middleware.GetTenantID(c), actorID(c), credentialapp.CreateCredentialInput{
		Name:         req.Name,
		ScopeType:    req.ScopeType,
		BranchID:     req.BranchID,
		Scopes:       req.Scopes,
		RateLimitRPM: req.RateLimitRPM,
		RateLimitRPD: req.RateLimitRPD,
		AllowedIPs:   req.AllowedIPs,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, issued)
}

// List returns the tenant's credentials
func (h *CredentialHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := req.ToFilter()
	page, err := h.service.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one credential
func (h *CredentialHandler) Get(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	credDTO, err := h.service.Get(c.Request.Context(), middleware.GetTenantID(c), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, credDTO)
}

// Update applies a partial update to a credential
func (h *CredentialHandler) Update(c *gin.Context) {
	var uriReq dto.IDRequest
	if err := c.ShouldBindUri(&uriReq); err != nil {
		h.BindError(c, err)
		return
	}
	var req UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	credDTO, err := h.service.Update(c.Request.Context(), middleware.GetTenantID(c), uuid.MustParse(uriReq.ID), actorID(c), credentialapp.UpdateCredentialInput{
		Name:         req.Name,
		Scopes:       req.Scopes,
		RateLimitRPM: req.RateLimitRPM,
		RateLimitRPD: req.RateLimitRPD,
		AllowedIPs:   req.AllowedIPs,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, credDTO)
}

// Rotate issues a successor key and bounds the old key to the grace period
func (h *CredentialHandler) Rotate(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	issued, err := h.service.Rotate(c.Request.Context(), middleware.GetTenantID(c), uuid.MustParse(req.ID), actorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, issued)
}

// Revoke soft-deletes a credential
func (h *CredentialHandler) Revoke(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.service.Revoke(c.Request.Context(), middleware.GetTenantID(c), uuid.MustParse(req.ID), actorID(c)); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Scopes returns the catalog of grantable scopes
func (h *CredentialHandler) Scopes(c *gin.Context) {
	h.Success(c, h.service.Scopes())
}

// actorID identifies who performed a management action: the credential that
// authenticated the management request.
func actorID(c *gin.Context) string {
	return middleware.MustGetAuthorization(c).Credential.ID.String()
}
