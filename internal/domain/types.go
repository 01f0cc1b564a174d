package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results together with the opaque token pointing
// at the next page. An empty NextPageToken means the listing is exhausted.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// HealthStatus grades a dependency probe result.
type HealthStatus string

const (
	// HealthStatusOK means the dependency responded in time.
	HealthStatusOK HealthStatus = "ok"
	// HealthStatusDegraded means the dependency errored but may recover.
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusError means the dependency timed out or is unreachable.
	HealthStatusError HealthStatus = "error"
)

// SystemHealthCheck is the outcome of probing one dependency.
type SystemHealthCheck struct {
	Status    HealthStatus
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency probes for the readiness endpoint.
type SystemHealthReport struct {
	Status      HealthStatus
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}

// OrderStatus describes fulfilment lifecycle states for an order.
type OrderStatus string

const (
	// OrderStatusPending is the initial state assigned at creation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates payment was accepted or the order was
	// manually approved.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusInProduction indicates the items are being produced.
	OrderStatusInProduction OrderStatus = "in_production"
	// OrderStatusPacked indicates the items are packed and awaiting pickup.
	OrderStatusPacked OrderStatus = "packed"
	// OrderStatusShipped indicates the parcel was handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the parcel reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is a member of the order status enum.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusInProduction,
		OrderStatusPacked, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus describes the settlement state recorded on an order.
type PaymentStatus string

const (
	// PaymentStatusPending means no successful capture has been recorded yet.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid means the gateway confirmed a capture.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed means the gateway reported a failed attempt.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded means a completed payment was returned.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ValidPaymentStatus reports whether s is a member of the payment status enum.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CustomizationText holds the free-text fields printed onto a personalised
// product. All fields are optional; whitespace-only values are treated as
// absent by the presence rules in normalize.go.
type CustomizationText struct {
	Name       string
	ClassName  string
	SchoolName string
	Section    string
}

// Customization captures everything a customer configured for a personalised
// item: text, uploaded photos, and styling choices. Production-only artefacts
// (preview image, print file) ride along once generated.
type Customization struct {
	IsCustomized   bool
	TextData       CustomizationText
	PhotoURLs      []string
	Font           string
	Color          string
	Style          string
	IsCartoonStyle bool
	PreviewImage   string
	PrintFile      string
}

// Product is a normalized order line item. TotalPrice is always
// Price * Quantity; Customization is nil when the item carries no
// personalisation data.
type Product struct {
	ProductID     string
	Name          string
	Price         float64
	Quantity      int
	TotalPrice    float64
	ImageURL      string
	IsCustomized  bool
	Customization *Customization
}

// ShippingAddress is the delivery destination attached to an order.
type ShippingAddress struct {
	UserName       string
	Phone          string
	AlternatePhone string
	PostalCode     string
	Locality       string
	Street         string
	City           string
	District       string
	State          string
	Country        string
	Landmark       string
	AddressType    string
}

// Order is the aggregate persisted per purchase. OrderNumber and QRCode are
// assigned exactly once at creation and never change afterwards.
type Order struct {
	ID                   string
	OrderNumber          string
	QRCode               string
	UserID               string
	UserName             string
	UserEmail            string
	Phone                string
	Products             []Product
	Subtotal             float64
	Tax                  float64
	Shipping             float64
	Discount             float64
	Total                float64
	ShippingAddress      ShippingAddress
	PaymentMethod        string
	PaymentStatus        PaymentStatus
	Status               OrderStatus
	TrackingNumber       string
	Carrier              string
	ShippedAt            *time.Time
	DeliveredAt          *time.Time
	CancelledAt          *time.Time
	Notes                string
	AdminNotes           string
	AssignedTo           string
	PrintFileURL         string
	DriveFolder          string
	PreviewImage         string
	PaymentTransactionID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OrderListFilter narrows order listings. Zero-value fields are ignored.
type OrderListFilter struct {
	UserID    string
	UserEmail string
	Status    OrderStatus
}

// OrderUpdate carries the whitelisted mutable fields for an order. Nil
// pointers leave the stored value untouched.
type OrderUpdate struct {
	PaymentStatus  *PaymentStatus
	PaymentMethod  *string
	Status         *OrderStatus
	TrackingNumber *string
	Carrier        *string
	Notes          *string
	AdminNotes     *string
	AssignedTo     *string
}

// UserRole labels the access level of an account.
type UserRole string

const (
	// RoleUser is the default customer role.
	RoleUser UserRole = "user"
	// RoleAdmin can see fulfilment-only fields and mutate orders.
	RoleAdmin UserRole = "admin"
)

// UserAccount is a customer or staff account. Email is stored lower-cased and
// trimmed; PasswordHash is a bcrypt digest and never leaves the service layer.
type UserAccount struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         UserRole
	Phone        string
	OrderIDs     []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionStatus describes the state of a gateway payment attempt.
type TransactionStatus string

const (
	// TransactionPending means the gateway order exists but no capture yet.
	TransactionPending TransactionStatus = "pending"
	// TransactionCompleted means the gateway confirmed capture.
	TransactionCompleted TransactionStatus = "completed"
	// TransactionFailed means the gateway reported failure.
	TransactionFailed TransactionStatus = "failed"
	// TransactionRefunded means the capture was refunded.
	TransactionRefunded TransactionStatus = "refunded"
)

// PaymentTransaction records one gateway payment attempt against an order.
// Amount is in rupees; the gateway receives integer paise.
type PaymentTransaction struct {
	ID              string
	OrderID         string
	UserID          string
	Amount          float64
	PaymentMethod   string
	GatewayOrderID  string
	Status          TransactionStatus
	GatewayResponse map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderDraft is the server-held work-in-progress order a customer builds up
// step by step before checkout. Products stay in raw form so the final
// normalization happens once, at order creation.
type OrderDraft struct {
	ID              string
	UserName        string
	UserEmail       string
	Phone           string
	Products        []RawProduct
	ShippingAddress *RawAddress
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PostalLocality is one deliverable locality resolved from a postal code.
type PostalLocality struct {
	Locality string
	City     string
	District string
	State    string
	Country  string
}
