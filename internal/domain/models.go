package domain

import "time"

// Enumerations
const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleStaff   UserRole = "staff"

	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"

	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
	PaymentQR   PaymentMethod = "QR"

	ShiftOpen   ShiftStatus = "OPEN"
	ShiftClosed ShiftStatus = "CLOSED"

	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
	SyncFailed   SyncStatus = "failed"

	EntityOrder SyncEntityType = "ORDER"
)

type UserRole string
type OrderStatus string
type PaymentMethod string
type ShiftStatus string
type SyncStatus string
type SyncEntityType string

// Money is an amount in the smallest currency unit. All monetary
// arithmetic in the system is exact integer arithmetic.
type Money struct {
	Amount   int64
	Currency string
}

type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	Role         UserRole
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type Menu struct {
	ID         int64
	Name       string
	Category   string
	CategoryID int64
	Price      Money
	Image      string
	Available  bool
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

type Order struct {
	ID            int64
	Number        string
	LocalID       string
	UserID        *int64
	ShiftID       *int64
	OperatorName  string
	Subtotal      Money
	Tax           Money
	Discount      Money
	Total         Money
	PaymentMethod PaymentMethod
	Status        OrderStatus
	Notes         string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	MenuID    *int64
	Name      string
	Price     Money
	Qty       int
	Note      string
	CreatedAt time.Time
}

type Shift struct {
	ID           int64
	UserID       int64
	OperatorName string
	Status       ShiftStatus
	StartingCash int64
	EndingCash   *int64
	ExpectedCash *int64
	Discrepancy  *int64
	Notes        string
	OpenedAt     time.Time
	ClosedAt     *time.Time
}

type Settings struct {
	BusinessName         string
	BusinessAddress      string
	BusinessPhone        string
	ReceiptFooter        string
	DefaultPaymentMethod string
	AutoPrint            bool
	Notifications        bool
	CurrencyCode         string
	UpdatedAt            time.Time
}

// CanTransition reports whether an order may move from its current
// status to next. Terminal statuses never transition.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderProcessing || next == OrderCompleted || next == OrderCancelled
	case OrderProcessing:
		return next == OrderCompleted || next == OrderCancelled
	default:
		return false
	}
}

// Resolved reports whether the order no longer blocks shift closing.
func (s OrderStatus) Resolved() bool {
	return s == OrderCompleted || s == OrderCancelled
}
