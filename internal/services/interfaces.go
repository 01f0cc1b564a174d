package services

import (
	"context"
	"io"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/jobs"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	OrderUpdate        = domain.OrderUpdate
	OrderDraft         = domain.OrderDraft
	RawProduct         = domain.RawProduct
	RawAddress         = domain.RawAddress
	UserAccount        = domain.UserAccount
	PaymentTransaction = domain.PaymentTransaction
	SystemHealthReport = domain.SystemHealthReport
)

// OrderService assembles, reads and mutates customer orders.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderRef string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (Order, error)
}

// UserService handles the merged register-or-login flow and account lookups.
type UserService interface {
	Authenticate(ctx context.Context, cmd AuthenticateCommand) (AuthResult, error)
	GetAccount(ctx context.Context, userID string) (UserAccount, error)
}

// PaymentService creates gateway orders and ingests gateway webhooks.
type PaymentService interface {
	CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (PaymentTransaction, error)
	ProcessWebhookEvent(ctx context.Context, cmd PaymentWebhookCommand) (PaymentTransaction, error)
}

// DraftService manages server-held work-in-progress orders.
type DraftService interface {
	CreateDraft(ctx context.Context, cmd UpsertDraftCommand) (OrderDraft, error)
	GetDraft(ctx context.Context, draftID string) (OrderDraft, error)
	UpdateDraft(ctx context.Context, cmd UpsertDraftCommand) (OrderDraft, error)
	DeleteDraft(ctx context.Context, draftID string) error
}

// UploadService streams customer media into the configured bucket.
type UploadService interface {
	Upload(ctx context.Context, cmd UploadCommand) (UploadResult, error)
}

// SystemService aggregates utility endpoints (health checks, readiness).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	Readiness(ctx context.Context) error
}

// OrderEventPublisher publishes order lifecycle events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message jobs.OrderEventMessage) (string, error)
}

// Command and DTO definitions ------------------------------------------------

// CreateOrderCommand carries the untrusted order payload after JSON decoding.
type CreateOrderCommand struct {
	UserName        string
	UserEmail       string
	Phone           string
	Products        []RawProduct
	ShippingAddress *RawAddress
	PaymentMethod   string
	Tax             float64
	Shipping        float64
	Discount        float64
	Notes           string
	DraftID         string
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID     string
	UserEmail  string
	Status     []string
	From       *time.Time
	To         *time.Time
	Pagination Pagination
}

// UpdateOrderCommand applies the whitelisted mutable fields to an order.
type UpdateOrderCommand struct {
	OrderRef string
	Update   OrderUpdate
	ActorID  string
}

// AuthenticateCommand is the merged register-or-login input.
type AuthenticateCommand struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// AuthResult reports the resolved account, whether it was just created, and
// the signed session token.
type AuthResult struct {
	Account UserAccount
	Created bool
	Token   string
}

// CreatePaymentCommand opens a gateway order for an existing order.
type CreatePaymentCommand struct {
	OrderRef      string
	PaymentMethod string
}

// PaymentWebhookCommand is the verified gateway callback payload.
type PaymentWebhookCommand struct {
	GatewayOrderID string
	EventType      string
	Captured       bool
	Failed         bool
	Payload        map[string]any
}

// UpsertDraftCommand creates or replaces a draft.
type UpsertDraftCommand struct {
	DraftID         string
	UserName        string
	UserEmail       string
	Phone           string
	Products        []RawProduct
	ShippingAddress *RawAddress
}

// UploadCommand describes one multipart media upload.
type UploadCommand struct {
	Folder      string
	FileType    string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadResult reports where the media landed.
type UploadResult struct {
	URL      string
	PublicID string
	Format   string
	Bytes    int64
	Folder   string
	FileType string
}
