package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-ticket-reservation/internal/model"
	apperrors "go-ticket-reservation/pkg/app_errors"

	"github.com/google/uuid"
)

// HTTPInventoryClientImpl 跨服務部署時透過 HTTP 呼叫庫存服務
// 連線失敗與逾時一律轉成 ErrInventoryUnavailable：
// reserve 逾時視為沒有扣到庫存 (不需補償)，release 逾時由呼叫端排入 pending release 重試
type HTTPInventoryClientImpl struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPInventoryClient(baseURL string, timeout time.Duration) InventoryClient {
	return &HTTPInventoryClientImpl{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type adjustStockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (c *HTTPInventoryClientImpl) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (*model.TicketTypeSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/ticket-types/%s/reserve", c.baseURL, ticketTypeID)

	resp, err := c.post(ctx, url, adjustStockRequest{Quantity: quantity})
	if err != nil {
		return nil, apperrors.ErrInventoryUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var snapshot model.TicketTypeSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			return nil, apperrors.ErrInventoryUnavailable
		}
		return &snapshot, nil
	case http.StatusConflict:
		return nil, apperrors.ErrInsufficientStock
	case http.StatusNotFound:
		return nil, apperrors.ErrTicketTypeNotFound
	default:
		return nil, apperrors.ErrInventoryUnavailable
	}
}

func (c *HTTPInventoryClientImpl) Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	url := fmt.Sprintf("%s/api/v1/ticket-types/%s/release", c.baseURL, ticketTypeID)

	resp, err := c.post(ctx, url, adjustStockRequest{Quantity: quantity})
	if err != nil {
		return apperrors.ErrInventoryUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperrors.ErrTicketTypeNotFound
	default:
		return apperrors.ErrInventoryUnavailable
	}
}

func (c *HTTPInventoryClientImpl) GetTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*model.TicketTypeSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/ticket-types/%s/snapshot", c.baseURL, ticketTypeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.ErrInventoryUnavailable
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrInventoryUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var snapshot model.TicketTypeSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			return nil, apperrors.ErrInventoryUnavailable
		}
		return &snapshot, nil
	case http.StatusNotFound:
		return nil, apperrors.ErrTicketTypeNotFound
	default:
		return nil, apperrors.ErrInventoryUnavailable
	}
}

func (c *HTTPInventoryClientImpl) post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
