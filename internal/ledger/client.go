// Package ledger provides the terminal-side client for the
// authoritative ledger API.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/ports"
)

// Client implements ports.OrderLedger over the server HTTP API.
// Transport faults and server errors (5xx) surface as plain errors,
// which the synchronizer treats as retryable; a 4xx rejection surfaces
// as *domain.SyncRejectedError and is terminal.
type Client struct {
	BaseURL  string
	APIToken string
	HTTP     *http.Client
}

// NewClient creates a ledger client for baseURL.
func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIToken: apiToken,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

type applyRequest struct {
	LocalID string              `json:"localId"`
	Order   ports.OrderMutation `json:"order"`
}

type applyEnvelope struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Data    *ports.ApplyResult `json:"data"`
}

// ApplyOrderMutation transmits one order mutation, idempotent on
// localID server-side.
func (c *Client) ApplyOrderMutation(ctx context.Context, localID string, m ports.OrderMutation) (ports.ApplyResult, error) {
	var res ports.ApplyResult

	body, err := json.Marshal(applyRequest{LocalID: localID, Order: m})
	if err != nil {
		return res, fmt.Errorf("marshal order mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sync/orders", bytes.NewReader(body))
	if err != nil {
		return res, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return res, fmt.Errorf("apply order mutation: %w", err)
	}
	defer resp.Body.Close()

	var envelope applyEnvelope
	if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr != nil && resp.StatusCode < 400 {
		return res, fmt.Errorf("decode ledger response: %w", decodeErr)
	}

	switch {
	case resp.StatusCode >= 500:
		return res, fmt.Errorf("ledger unavailable: %s", resp.Status)
	case resp.StatusCode >= 400:
		reason := envelope.Message
		if reason == "" {
			reason = resp.Status
		}
		return res, &domain.SyncRejectedError{Reason: reason}
	}

	if envelope.Data == nil {
		return res, fmt.Errorf("ledger response missing result")
	}
	return *envelope.Data, nil
}

// FetchMenus returns the server's full menu catalog.
func (c *Client) FetchMenus(ctx context.Context) ([]ports.CatalogMenu, error) {
	var menus []ports.CatalogMenu
	if err := c.getJSON(ctx, "/menus", &menus); err != nil {
		return nil, err
	}
	return menus, nil
}

// FetchCategories returns the server's category list.
func (c *Client) FetchCategories(ctx context.Context) ([]ports.CatalogCategory, error) {
	var categories []ports.CatalogCategory
	if err := c.getJSON(ctx, "/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

type settingsPayload struct {
	BusinessName         string    `json:"businessName"`
	BusinessAddress      string    `json:"businessAddress"`
	BusinessPhone        string    `json:"businessPhone"`
	ReceiptFooter        string    `json:"receiptFooter"`
	DefaultPaymentMethod string    `json:"defaultPaymentMethod"`
	AutoPrint            bool      `json:"autoPrint"`
	Notifications        bool      `json:"notifications"`
	CurrencyCode         string    `json:"currencyCode"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// FetchSettings returns the server's business profile.
func (c *Client) FetchSettings(ctx context.Context) (*domain.Settings, error) {
	var p settingsPayload
	if err := c.getJSON(ctx, "/settings", &p); err != nil {
		return nil, err
	}
	return &domain.Settings{
		BusinessName:         p.BusinessName,
		BusinessAddress:      p.BusinessAddress,
		BusinessPhone:        p.BusinessPhone,
		ReceiptFooter:        p.ReceiptFooter,
		DefaultPaymentMethod: p.DefaultPaymentMethod,
		AutoPrint:            p.AutoPrint,
		Notifications:        p.Notifications,
		CurrencyCode:         p.CurrencyCode,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

// getJSON performs an authenticated GET and decodes the data field of
// the response envelope into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetch %s: ledger returned %s", path, resp.Status)
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if envelope.Data == nil {
		return fmt.Errorf("fetch %s: ledger response missing data", path)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}
