package ports

import (
	"context"

	"kedaipos-backend/internal/domain"
)

// HealthChecker is used to probe dependencies.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// OrderMutationItem is one order line inside an OrderMutation.
type OrderMutationItem struct {
	MenuID *int64 `json:"menuId,omitempty"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Qty    int    `json:"qty"`
	Note   string `json:"note,omitempty"`
}

// OrderMutation is the locally originated order state transmitted to
// the authoritative ledger. LocalID travels separately as the
// idempotency key.
type OrderMutation struct {
	Number        string               `json:"number"`
	UserID        *int64               `json:"userId,omitempty"`
	ShiftID       *int64               `json:"shiftId,omitempty"`
	OperatorName  string               `json:"operatorName,omitempty"`
	Subtotal      int64                `json:"subtotal"`
	Tax           int64                `json:"tax"`
	Discount      int64                `json:"discount"`
	Total         int64                `json:"total"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Status        domain.OrderStatus   `json:"status"`
	Notes         string               `json:"notes,omitempty"`
	Items         []OrderMutationItem  `json:"items"`
}

// ApplyResult is the ledger's acknowledgement of an order mutation.
type ApplyResult struct {
	ServerID int64              `json:"serverId"`
	Number   string             `json:"number"`
	Status   domain.OrderStatus `json:"status"`
}

// CatalogMenu is the server's menu projection as mirrored into the
// terminal cache.
type CatalogMenu struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"categoryId"`
	Price      int64  `json:"price"`
	Image      string `json:"image"`
	Available  bool   `json:"available"`
	Version    int64  `json:"version"`
}

// CatalogCategory is the server's category projection.
type CatalogCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CatalogSource serves the read-mostly reference data a terminal
// mirrors wholesale between connectivity windows: the menu catalog
// and the business profile.
type CatalogSource interface {
	FetchMenus(ctx context.Context) ([]CatalogMenu, error)
	FetchCategories(ctx context.Context) ([]CatalogCategory, error)
	FetchSettings(ctx context.Context) (*domain.Settings, error)
}

// OrderLedger is the narrow contract the synchronizer consumes from the
// authoritative ledger. ApplyOrderMutation must be idempotent on
// localID: replaying a previously applied mutation returns the original
// result without creating a second order.
type OrderLedger interface {
	ApplyOrderMutation(ctx context.Context, localID string, m OrderMutation) (ApplyResult, error)
}
