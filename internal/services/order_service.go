package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	qrcode "github.com/skip2/go-qrcode"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/jobs"
	"github.com/fetchkids/api/internal/platform/textutil"
	"github.com/fetchkids/api/internal/repositories"
)

const (
	orderIDPrefix = "ord_"
	userIDPrefix  = "usr_"

	orderNumberCounter = "orders"
	orderNumberFormat  = "FK-%04d-%06d"

	defaultPaymentMethod = "cod"
	qrImageSize          = 256
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates duplicate writes or concurrent modification.
	ErrOrderConflict = errors.New("order: conflict")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders          repositories.OrderRepository
	Users           repositories.UserRepository
	Drafts          repositories.OrderDraftRepository
	Counters        repositories.CounterRepository
	Clock           func() time.Time
	IDGenerator     func() string
	Events          OrderEventPublisher
	TrackingBaseURL string
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	users       repositories.UserRepository
	drafts      repositories.OrderDraftRepository
	counters    repositories.CounterRepository
	clock       func() time.Time
	newID       func() string
	events      OrderEventPublisher
	trackingURL string
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	trackingURL := strings.TrimRight(strings.TrimSpace(deps.TrackingBaseURL), "/")
	if trackingURL == "" {
		trackingURL = "https://fetchkids.in"
	}

	return &orderService{
		orders:   deps.Orders,
		users:    deps.Users,
		drafts:   deps.Drafts,
		counters: deps.Counters,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:       idGen,
		events:      deps.Events,
		trackingURL: trackingURL,
		logger:      logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if len(cmd.Products) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one product", ErrOrderInvalidInput)
	}

	userName := textutil.Clean(cmd.UserName)
	userEmail := strings.ToLower(strings.TrimSpace(cmd.UserEmail))
	phone := strings.TrimSpace(cmd.Phone)
	if userEmail == "" {
		return Order{}, fmt.Errorf("%w: user email is required", ErrOrderInvalidInput)
	}
	if userName == "" {
		return Order{}, fmt.Errorf("%w: user name is required", ErrOrderInvalidInput)
	}

	products := make([]domain.Product, 0, len(cmd.Products))
	for _, raw := range cmd.Products {
		products = append(products, sanitizeProduct(domain.NormalizeProduct(raw)))
	}
	totals := domain.ComputeTotals(products, cmd.Tax, cmd.Shipping, cmd.Discount)

	address, err := domain.NormalizeShippingAddress(cmd.ShippingAddress, userName, phone)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderInvalidInput, err.Error())
	}

	now := s.now()

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return Order{}, fmt.Errorf("order: allocate order number: %w", err)
	}
	qr, err := s.buildTrackingQR(number)
	if err != nil {
		return Order{}, fmt.Errorf("order: build tracking qr: %w", err)
	}

	paymentMethod := strings.TrimSpace(cmd.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	account, err := s.resolveAccount(ctx, userEmail, userName, phone, now)
	if err != nil {
		return Order{}, err
	}

	order := Order{
		ID:              orderIDPrefix + s.newID(),
		OrderNumber:     number,
		QRCode:          qr,
		UserID:          account.ID,
		UserName:        userName,
		UserEmail:       userEmail,
		Phone:           phone,
		Products:        products,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Discount:        totals.Discount,
		Total:           totals.Total,
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   domain.PaymentStatusPending,
		Status:          domain.OrderStatusPending,
		Notes:           textutil.Clean(cmd.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if err := s.users.AppendOrder(ctx, account.ID, order.ID, now); err != nil {
		s.logger(ctx, "order.user.link.failed", map[string]any{
			"order": order.ID,
			"user":  account.ID,
			"error": err.Error(),
		})
	}

	if draftID := strings.TrimSpace(cmd.DraftID); draftID != "" && s.drafts != nil {
		if err := s.drafts.Delete(ctx, draftID); err != nil {
			s.logger(ctx, "order.draft.cleanup.failed", map[string]any{
				"order": order.ID,
				"draft": draftID,
				"error": err.Error(),
			})
		}
	}

	s.publishEvent(ctx, jobs.OrderEventMessage{
		EventType:   jobs.EventOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Total:       order.Total,
		OccurredAt:  now,
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderRef string) (Order, error) {
	ref := strings.TrimSpace(orderRef)
	if ref == "" {
		return Order{}, fmt.Errorf("%w: order reference is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByOrderNumber(ctx, ref)
	if err == nil {
		return order, nil
	}
	if mapped := s.mapRepositoryError(err); !errors.Is(mapped, ErrOrderNotFound) {
		return Order{}, mapped
	}

	order, err = s.orders.FindByID(ctx, ref)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	repoFilter := repositories.OrderListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		UserEmail:  strings.ToLower(strings.TrimSpace(filter.UserEmail)),
		Pagination: filter.Pagination,
	}
	for _, status := range filter.Status {
		status = strings.TrimSpace(status)
		if status == "" {
			continue
		}
		if !domain.ValidOrderStatus(domain.OrderStatus(status)) {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
		repoFilter.Status = append(repoFilter.Status, status)
	}
	if filter.From != nil {
		from := filter.From.UTC()
		repoFilter.DateRange.From = &from
	}
	if filter.To != nil {
		to := filter.To.UTC()
		repoFilter.DateRange.To = &to
	}

	page, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (Order, error) {
	order, err := s.GetOrder(ctx, cmd.OrderRef)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	prevStatus := order.Status

	update := cmd.Update
	if update.Status != nil {
		target := domain.OrderStatus(strings.TrimSpace(string(*update.Status)))
		if !domain.ValidOrderStatus(target) {
			return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *update.Status)
		}
		order.Status = target
		s.stampStatusTimes(&order, target, now)
	}
	if update.PaymentStatus != nil {
		target := domain.PaymentStatus(strings.TrimSpace(string(*update.PaymentStatus)))
		if !domain.ValidPaymentStatus(target) {
			return Order{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, *update.PaymentStatus)
		}
		order.PaymentStatus = target
	}
	if update.PaymentMethod != nil {
		order.PaymentMethod = strings.TrimSpace(*update.PaymentMethod)
	}
	if update.TrackingNumber != nil {
		order.TrackingNumber = strings.TrimSpace(*update.TrackingNumber)
	}
	if update.Carrier != nil {
		order.Carrier = strings.TrimSpace(*update.Carrier)
	}
	if update.Notes != nil {
		order.Notes = textutil.Clean(*update.Notes)
	}
	if update.AdminNotes != nil {
		order.AdminNotes = textutil.Clean(*update.AdminNotes)
	}
	if update.AssignedTo != nil {
		order.AssignedTo = strings.TrimSpace(*update.AssignedTo)
	}
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if update.Status != nil && order.Status != prevStatus {
		s.publishEvent(ctx, jobs.OrderEventMessage{
			EventType:   jobs.EventOrderStatusChanged,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Status:      string(order.Status),
			Total:       order.Total,
			OccurredAt:  now,
		})
	}

	return order, nil
}

// stampStatusTimes records the first time an order reaches a terminal-ish
// fulfilment state. Already-stamped times are kept.
func (s *orderService) stampStatusTimes(order *Order, status domain.OrderStatus, now time.Time) {
	switch status {
	case domain.OrderStatusShipped:
		if order.ShippedAt == nil {
			order.ShippedAt = &now
		}
	case domain.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	case domain.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	}
}

// resolveAccount finds the account for the order email or provisions one so
// the order can be linked. Provisioned accounts have no password yet; the
// customer claims them on first login.
func (s *orderService) resolveAccount(ctx context.Context, email, name, phone string, now time.Time) (UserAccount, error) {
	account, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return account, nil
	}

	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		return UserAccount{}, s.mapRepositoryError(err)
	}

	account = UserAccount{
		ID:        userIDPrefix + s.newID(),
		Email:     email,
		Name:      name,
		Role:      domain.RoleUser,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Insert(ctx, account); err != nil {
		return UserAccount{}, s.mapRepositoryError(err)
	}
	return account, nil
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, fmt.Sprintf("%s-%d", orderNumberCounter, now.Year()))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(orderNumberFormat, now.Year(), seq), nil
}

func (s *orderService) buildTrackingQR(orderNumber string) (string, error) {
	target := fmt.Sprintf("%s/order/track/%s", s.trackingURL, orderNumber)
	png, err := qrcode.Encode(target, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) publishEvent(ctx context.Context, message jobs.OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   message.EventType,
			"order":  message.OrderID,
			"status": message.Status,
			"error":  err.Error(),
		})
	}
}

func (s *orderService) now() time.Time {
	return s.clock()
}

// sanitizeProduct strips markup from the free-text customization fields.
// Pricing and layout fields pass through untouched.
func sanitizeProduct(p domain.Product) domain.Product {
	p.Name = textutil.Clean(p.Name)
	if p.Customization == nil {
		return p
	}
	c := *p.Customization
	c.TextData.Name = textutil.Clean(c.TextData.Name)
	c.TextData.ClassName = textutil.Clean(c.TextData.ClassName)
	c.TextData.SchoolName = textutil.Clean(c.TextData.SchoolName)
	c.TextData.Section = textutil.Clean(c.TextData.Section)
	p.Customization = &c
	return p
}
