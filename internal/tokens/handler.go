package tokens

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "staytax/pkg/errors"
	httputil "staytax/pkg/http"
	"staytax/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type GenerateRequest struct {
	Container   string `json:"container"`
	Blob        string `json:"blob"`
	Permissions string `json:"permissions"`
	TTLSeconds  int    `json:"ttl_seconds"`
}

type GenerateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Handler struct {
	issuer *Issuer
	log    *logger.Logger
}

func NewHandler(issuer *Issuer, log *logger.Logger) *Handler {
	return &Handler{
		issuer: issuer,
		log:    log,
	}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Generate", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if req.Container == "" || req.Blob == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("container and blob are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Generate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if req.Permissions == "" {
		req.Permissions = "r"
	}

	token, expiresAt, err := h.issuer.Issue(req.Container, req.Blob, req.Permissions, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.log.Error("Failed to issue storage token", "container", req.Container, "error", err)
		if writeErr := httputil.WriteError(w, apperrors.Internal("Failed to issue storage token", err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Generate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	h.log.Info("Storage token issued", "container", req.Container, "blob", req.Blob, "expires_at", expiresAt)

	if err := httputil.WriteSuccess(w, GenerateResponse{Token: token, ExpiresAt: expiresAt}); err != nil {
		h.log.Error("failed to write success response", "handler", "Generate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/storage/generate-sas", h.Generate)
}
