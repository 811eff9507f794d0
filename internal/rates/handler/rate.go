package handler

import (
	"net/http"

	"staytax/internal/rates/service"
	httputil "staytax/pkg/http"
	"staytax/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type RateHandler struct {
	service service.RateService
	log     *logger.Logger
}

func NewRateHandler(service service.RateService, log *logger.Logger) *RateHandler {
	return &RateHandler{
		service: service,
		log:     log,
	}
}

func (h *RateHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rates, err := h.service.GetAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rates); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RateHandler) GetByCity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rate, err := h.service.GetByCity(r.Context(), ps.ByName("city"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByCity", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rate); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByCity", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RateHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rates", h.GetAll)
	router.GET("/api/v1/rates/:city", h.GetByCity)
}
