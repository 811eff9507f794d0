package validation

import (
	"encoding/json"
	"net/http"

	httputil "staytax/pkg/http"
	"staytax/pkg/logger"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

type UUIDRequest struct {
	Value string `json:"value"`
}

type UUIDResponse struct {
	Value   string `json:"value"`
	Valid   bool   `json:"valid"`
	Version int    `json:"version,omitempty"`
}

type Handler struct {
	log *logger.Logger
}

func NewHandler(log *logger.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) CheckUUID(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req UUIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CheckUUID", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	resp := UUIDResponse{Value: req.Value}
	if parsed, err := uuid.Parse(req.Value); err == nil {
		resp.Valid = true
		resp.Version = int(parsed.Version())
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckUUID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/validation/uuid", h.CheckUUID)
}
