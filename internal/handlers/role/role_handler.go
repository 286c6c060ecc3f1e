package role

import (
	"net/http"
	"strconv"

	"billhub-service/internal/domain/role"
	"billhub-service/internal/middleware"
	"billhub-service/internal/pkg/response"
	rolesvc "billhub-service/internal/service/role"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	svc *rolesvc.RoleService
}

func NewRoleHandler(svc *rolesvc.RoleService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

func (h *RoleHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid role id", err)
		return
	}

	r, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err, "Role not found")
		return
	}
	response.Success(c, http.StatusOK, "OK", r)
}

func (h *RoleHandler) List(c *gin.Context) {
	var filters role.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "Invalid query parameters", err)
		return
	}

	roles, total, pages, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", gin.H{
		"roles":      roles,
		"total":      total,
		"page_count": pages,
	})
}

func (h *RoleHandler) Create(c *gin.Context) {
	var req role.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid role payload", err)
		return
	}

	r, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusCreated, "Role created", r)
}

func (h *RoleHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid role id", err)
		return
	}

	var req role.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid role payload", err)
		return
	}

	r, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Role updated", r)
}

func (h *RoleHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid role id", err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Role deleted", nil)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
