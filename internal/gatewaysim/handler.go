package gatewaysim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"staytax/pkg/client"
	apperrors "staytax/pkg/errors"
	httputil "staytax/pkg/http"
	"staytax/pkg/logger"
	"staytax/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type TransactionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

type CreateTransactionRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Description string `json:"description,omitempty"`
}

type Handler struct {
	store        *Store
	notifyURL    string
	notifySecret string
	notifier     *client.HttpClient
	log          *logger.Logger
}

// NewHandler serves the sandbox gateway API. When notifyURL is set,
// terminal transactions fire a signed webhook back to it, best effort.
func NewHandler(store *Store, notifyURL, notifySecret string, log *logger.Logger) *Handler {
	h := &Handler{
		store:        store,
		notifyURL:    notifyURL,
		notifySecret: notifySecret,
		log:          log,
	}
	if notifyURL != "" {
		h.notifier = client.NewHttpClient(notifyURL)
	}
	return h
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if req.AmountMinor <= 0 || req.Currency == "" || req.OrderID == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("amount_minor, currency and order_id are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	tx := h.store.Create(req.AmountMinor, req.Currency, req.OrderID, req.Description)

	h.log.Info("Sandbox transaction created", "id", tx.ID, "order_id", tx.OrderID, "amount_minor", tx.AmountMinor)

	if err := httputil.WriteCreated(w, h.render(tx, "new")); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tx, status, err := h.store.Get(ps.ByName("id"))
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			err = apperrors.NotFoundWithID("Transaction", ps.ByName("id"))
		}
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if (status == "settled" || status == "rejected") && h.notifier != nil {
		h.notifyOnce(tx, status)
	}

	if err := httputil.WriteSuccess(w, h.render(tx, status)); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *Handler) render(tx *transaction, status string) TransactionResponse {
	resp := TransactionResponse{
		ID:          tx.ID,
		Status:      status,
		AmountMinor: tx.AmountMinor,
		Currency:    tx.Currency,
		OrderID:     tx.OrderID,
		RedirectURL: "/sandbox/pay/" + tx.ID,
	}
	if status == "settled" {
		resp.ReceiptURL = "/sandbox/receipts/" + tx.ID + ".pdf"
	}
	return resp
}

func (h *Handler) notifyOnce(tx *transaction, status string) {
	if !h.store.MarkNotified(tx.ID) {
		return
	}

	payload := map[string]string{
		"transaction_id": tx.ID,
		"status":         status,
	}
	if status == "settled" {
		payload["receipt_url"] = "/sandbox/receipts/" + tx.ID + ".pdf"
	}

	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			return
		}
		headers := map[string]string{
			middleware.SignatureHeader: middleware.Sign(body, h.notifySecret),
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.notifier.POSTWithHeaders(ctx, "", payload, headers); err != nil {
			h.log.Warn("Webhook delivery failed", "transaction_id", tx.ID, "error", err)
		}
	}()
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/transactions", h.Create)
	router.GET("/api/v1/transactions/:id", h.Get)
}
