package handler

import (
	"encoding/json"
	"net/http"

	"staytax/internal/payments/service"
	httputil "staytax/pkg/http"
	"staytax/pkg/logger"
	"staytax/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// NotificationPath is the webhook route guarded by signature verification.
const NotificationPath = "/api/v1/payments/notifications"

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Initiate", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	payment, err := h.service.Initiate(r.Context(), req.ReservationID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Initiate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, payment); err != nil {
		h.log.Error("failed to write created response", "handler", "Initiate", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payment, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) GetByReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payments, err := h.service.GetByReservation(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByReservation", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, payments); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByReservation", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) Notification(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var notification service.GatewayNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Notification", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.HandleNotification(r.Context(), &notification); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Notification", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments", h.Initiate)
	router.GET("/api/v1/payments/id/:id", h.GetByID)
	router.GET("/api/v1/payments/reservation/:id", h.GetByReservation)
	router.POST(NotificationPath, h.Notification)
}
