package client

import (
	"net/http"
	"strconv"

	"billhub-service/internal/domain/client"
	"billhub-service/internal/middleware"
	"billhub-service/internal/pkg/response"
	clientsvc "billhub-service/internal/service/client"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	svc *clientsvc.ClientService
}

func NewClientHandler(svc *clientsvc.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

func (h *ClientHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid client id", err)
		return
	}

	cl, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err, "Client not found")
		return
	}
	response.Success(c, http.StatusOK, "OK", cl)
}

func (h *ClientHandler) List(c *gin.Context) {
	var filters client.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "Invalid query parameters", err)
		return
	}

	clients, total, pages, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", gin.H{
		"clients":    clients,
		"total":      total,
		"page_count": pages,
	})
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req client.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid client payload", err)
		return
	}

	cl, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusCreated, "Client created", cl)
}

func (h *ClientHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid client id", err)
		return
	}

	var req client.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid client payload", err)
		return
	}

	cl, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Client updated", cl)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.ValidationError(c, "Invalid client id", err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "Client deleted", nil)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
