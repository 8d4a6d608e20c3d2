package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/service"
	apperrors "go-ticket-reservation/pkg/app_errors"
	"go-ticket-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TicketTypeHandler struct {
	service service.TicketTypeService
}

func NewTicketTypeHandler(service service.TicketTypeService) *TicketTypeHandler {
	return &TicketTypeHandler{service: service}
}

func (h *TicketTypeHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("ticket-types/:id", h.GetTicketType)
		router.GET("events/:event_id/ticket-types", h.ListByEvent)
		router.POST("ticket-types", h.CreateTicketType)
		router.PATCH("ticket-types/:id", h.UpdateTicketType)
		router.DELETE("ticket-types/:id", h.DeleteTicketType)

		// 庫存操作端點：HTTP 版 InventoryClient 打這三個
		router.GET("ticket-types/:id/snapshot", h.GetSnapshot)
		router.POST("ticket-types/:id/reserve", h.Reserve)
		router.POST("ticket-types/:id/release", h.Release)
	}
}

type createTicketTypeRequest struct {
	EventID        int        `json:"event_id" binding:"required"`
	Name           string     `json:"name" binding:"required"`
	Price          float64    `json:"price" binding:"min=0"`
	TotalQuantity  int        `json:"total_quantity" binding:"min=0"`
	MaxPerCustomer int        `json:"max_per_customer" binding:"min=0"`
	SalesStartAt   *time.Time `json:"sales_start_at"`
	SalesEndAt     *time.Time `json:"sales_end_at"`
}

type updateTicketTypeRequest struct {
	Name           *string    `json:"name"`
	Price          *float64   `json:"price"`
	MaxPerCustomer *int       `json:"max_per_customer"`
	Status         *string    `json:"status"`
	SalesStartAt   *time.Time `json:"sales_start_at"`
	SalesEndAt     *time.Time `json:"sales_end_at"`
}

type adjustStockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (h *TicketTypeHandler) CreateTicketType(c *gin.Context) {
	var req createTicketTypeRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticketType := &model.TicketType{
		EventID:        req.EventID,
		Name:           req.Name,
		Price:          req.Price,
		TotalQuantity:  req.TotalQuantity,
		MaxPerCustomer: req.MaxPerCustomer,
		SalesStartAt:   req.SalesStartAt,
		SalesEndAt:     req.SalesEndAt,
	}

	created, err := h.service.Create(c, ticketType)
	if err != nil {
		h.handleError(c, err, "CreateTicketType")
		return
	}

	c.JSON(http.StatusCreated, created.ToResponse())
}

func (h *TicketTypeHandler) GetTicketType(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	ticketType, err := h.service.GetByID(c, id)
	if err != nil {
		h.handleError(c, err, "GetTicketType")
		return
	}

	c.JSON(http.StatusOK, ticketType.ToResponse())
}

func (h *TicketTypeHandler) ListByEvent(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("event_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	ticketTypes, err := h.service.ListByEvent(c, eventID)
	if err != nil {
		h.handleError(c, err, "ListByEvent")
		return
	}

	responses := make([]model.TicketTypeResponse, 0, len(ticketTypes))
	for _, t := range ticketTypes {
		responses = append(responses, t.ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}

func (h *TicketTypeHandler) UpdateTicketType(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req updateTicketTypeRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	params := model.UpdateTicketTypeParams{
		Name:           req.Name,
		Price:          req.Price,
		MaxPerCustomer: req.MaxPerCustomer,
		SalesStartAt:   req.SalesStartAt,
		SalesEndAt:     req.SalesEndAt,
	}
	if req.Status != nil {
		status := model.TicketTypeStatus(*req.Status)
		params.Status = &status
	}

	updated, err := h.service.Update(c, id, params)
	if err != nil {
		h.handleError(c, err, "UpdateTicketType")
		return
	}

	c.JSON(http.StatusOK, updated.ToResponse())
}

func (h *TicketTypeHandler) DeleteTicketType(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c, id); err != nil {
		h.handleError(c, err, "DeleteTicketType")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TicketTypeHandler) GetSnapshot(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	ticketType, err := h.service.GetByID(c, id)
	if err != nil {
		h.handleError(c, err, "GetSnapshot")
		return
	}

	c.JSON(http.StatusOK, ticketType.Snapshot())
}

func (h *TicketTypeHandler) Reserve(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	snapshot, err := h.service.Reserve(c, id, req.Quantity)
	if err != nil {
		h.handleError(c, err, "Reserve")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *TicketTypeHandler) Release(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	found, err := h.service.Release(c, id, req.Quantity)
	if err != nil {
		h.handleError(c, err, "Release")
		return
	}
	if !found {
		h.handleError(c, apperrors.ErrTicketTypeNotFound, "Release")
		return
	}

	c.Status(http.StatusOK)
}

func (h *TicketTypeHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrInsufficientStock):
		log.Warn("Insufficient stock")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Insufficient stock",
		})
	case errors.Is(err, apperrors.ErrTicketTypeNotFound):
		log.Warn("Ticket type not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticket type not found",
		})
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		log.Warn("Invalid status transition")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Invalid status transition",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
