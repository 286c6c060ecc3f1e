package user

import (
	"net/http"
	"strconv"

	"billhub-service/internal/domain/user"
	"billhub-service/internal/middleware"
	"billhub-service/internal/pkg/response"
	usersvc "billhub-service/internal/service/user"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *usersvc.UserService
}

func NewUserHandler(svc *usersvc.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid user id", err)
		return
	}

	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err, "User not found")
		return
	}
	response.Success(c, http.StatusOK, "OK", u)
}

func (h *UserHandler) List(c *gin.Context) {
	var filters user.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "Invalid query parameters", err)
		return
	}

	users, total, pages, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", gin.H{
		"users":      users,
		"total":      total,
		"page_count": pages,
	})
}

func (h *UserHandler) Create(c *gin.Context) {
	var req user.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid user payload", err)
		return
	}

	u, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusCreated, "User created", u)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid user id", err)
		return
	}

	var req user.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid user payload", err)
		return
	}

	u, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "User updated", u)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid user id", err)
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "User deactivated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid user id", err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "User deleted", nil)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
