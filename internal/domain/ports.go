package domain

import "context"

type InventoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListUnits(ctx context.Context) ([]RoomUnit, error)
	// ReserveFreeUnit atomically moves the lowest-id free unit of the category
	// whose subtitle is label to reserved and returns it, or ErrNotFound.
	ReserveFreeUnit(ctx context.Context, label string) (RoomUnit, error)
	// SetUnitStatus moves a unit to status. When from is non-empty the write
	// only applies if the unit is currently in from.
	SetUnitStatus(ctx context.Context, id int64, from, to UnitStatus) (bool, error)
	// TransitionUnit moves the lowest-id unit of categoryID in from to to.
	TransitionUnit(ctx context.Context, categoryID string, from, to UnitStatus) (bool, error)
	AddUnit(ctx context.Context, categoryID string) (bool, error)
	// RemoveUnit deletes one free unit of the category; non-free units are never removed.
	RemoveUnit(ctx context.Context, categoryID string) (bool, error)
	SetCategoryPrice(ctx context.Context, categoryID string, price float64) (bool, error)
}

type TransactionLedger interface {
	CreateTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, orderID string) (Transaction, error)
	// SetTransactionStatus writes status and detail only if the stored status
	// still equals expected (compare-and-set). It reports whether the row changed.
	SetTransactionStatus(ctx context.Context, orderID string, expected, status TxStatus, detail []byte) (bool, error)
	DeleteTransaction(ctx context.Context, orderID string) (bool, error)
	// ListTransactions returns newest first.
	ListTransactions(ctx context.Context) ([]Transaction, error)
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c Complaint) error
	SetComplaintStatus(ctx context.Context, id, status string) (bool, error)
}

// Gateway is the payment provider as seen by the poll path and payment initiation.
type Gateway interface {
	GetOrder(ctx context.Context, orderID string) (GatewayOrder, error)
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentForm, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
