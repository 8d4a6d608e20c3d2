package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-ticket-reservation/internal/model"
	"go-ticket-reservation/internal/service"
	apperrors "go-ticket-reservation/pkg/app_errors"
	"go-ticket-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	service service.ReservationService
}

func NewReservationHandler(service service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("reservations", h.CreateReservation)
		router.GET("reservations/:id", h.GetReservation)
		router.PUT("reservations/:id/cancel", h.CancelReservation)
		router.PUT("reservations/:id/convert", h.ConvertReservation)
		router.GET("customers/:customer_id/reservations", h.ListByCustomer)
		router.GET("events/:event_id/reservations", h.ListByEvent)
	}
}

func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req model.CreateReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	created, err := h.service.CreateReservation(c, req)
	if err != nil {
		h.handleError(c, err, "CreateReservation")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.service.GetReservation(c, id)
	if err != nil {
		h.handleError(c, err, "GetReservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}

func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.CancelReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	cancelled, err := h.service.CancelReservation(c, id, req)
	if err != nil {
		h.handleError(c, err, "CancelReservation")
		return
	}

	c.JSON(http.StatusOK, cancelled)
}

func (h *ReservationHandler) ConvertReservation(c *gin.Context) {
	id, ok := ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.ConvertReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	converted, err := h.service.ConvertReservation(c, id, req.OrderID)
	if err != nil {
		h.handleError(c, err, "ConvertReservation")
		return
	}

	c.JSON(http.StatusOK, converted)
}

func (h *ReservationHandler) ListByCustomer(c *gin.Context) {
	customerID, err := strconv.Atoi(c.Param("customer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	reservations, err := h.service.ListByCustomer(c, customerID)
	if err != nil {
		h.handleError(c, err, "ListByCustomer")
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *ReservationHandler) ListByEvent(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("event_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	reservations, err := h.service.ListByEvent(c, eventID)
	if err != nil {
		h.handleError(c, err, "ListByEvent")
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *ReservationHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEmptyReservationItems),
		errors.Is(err, apperrors.ErrEventMismatch),
		errors.Is(err, apperrors.ErrExceedsMaxPerCustomer),
		errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
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
	case errors.Is(err, apperrors.ErrReservationNotFound):
		log.Warn("Reservation not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Reservation not found",
		})
	case errors.Is(err, apperrors.ErrInvalidReservationStatus):
		log.Warn("Invalid reservation status")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Invalid reservation status",
		})
	case errors.Is(err, apperrors.ErrInventoryUnavailable):
		log.Error("Inventory service unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Inventory service unavailable",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
