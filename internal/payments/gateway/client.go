package gateway

import (
	"context"
	"fmt"
	"net/http"

	"staytax/pkg/client"
	"staytax/pkg/logger"
	"staytax/pkg/model"
)

// Transaction is the gateway's view of a payment.
type Transaction struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

type CreateRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Description string `json:"description,omitempty"`
}

// Gateway status vocabulary.
const (
	StatusNew      = "new"
	StatusPending  = "pending"
	StatusSettled  = "settled"
	StatusRejected = "rejected"
)

// MapStatus translates a gateway transaction status to a payment status.
// Unknown statuses map to empty string; callers skip those.
func MapStatus(gatewayStatus string) string {
	switch gatewayStatus {
	case StatusNew:
		return model.PaymentPending
	case StatusPending:
		return model.PaymentProcessing
	case StatusSettled:
		return model.PaymentCompleted
	case StatusRejected:
		return model.PaymentFailed
	default:
		return ""
	}
}

type Client interface {
	CreateTransaction(ctx context.Context, req *CreateRequest) (*Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*Transaction, error)
}

type httpGateway struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewHTTPClient(baseURL string, retry client.RetryPolicy, log *logger.Logger) Client {
	httpClient := client.NewHttpClient(baseURL)
	httpClient.Retry = retry
	return &httpGateway{
		http: httpClient,
		log:  log,
	}
}

type transactionEnvelope struct {
	Data Transaction `json:"data"`
}

func (g *httpGateway) CreateTransaction(ctx context.Context, req *CreateRequest) (*Transaction, error) {
	resp, err := g.http.POST(ctx, "/api/v1/transactions", req)
	if err != nil {
		return nil, fmt.Errorf("gateway create transaction failed: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway create transaction returned %d: %s", resp.StatusCode, client.GetErrorMessage(resp))
	}

	var envelope transactionEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway transaction: %w", err)
	}

	return &envelope.Data, nil
}

func (g *httpGateway) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	resp, err := g.http.GET(ctx, "/api/v1/transactions/"+transactionID)
	if err != nil {
		return nil, fmt.Errorf("gateway get transaction failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway get transaction returned %d: %s", resp.StatusCode, client.GetErrorMessage(resp))
	}

	var envelope transactionEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway transaction: %w", err)
	}

	return &envelope.Data, nil
}
