package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/auth"
	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/platform/pagination"
	"github.com/fetchkids/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

type createOrderRequest struct {
	UserName        string              `json:"userName"`
	UserEmail       string              `json:"userEmail"`
	Phone           string              `json:"phone"`
	Products        []domain.RawProduct `json:"products"`
	ShippingAddress *domain.RawAddress  `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	Tax             domain.LooseNumber  `json:"tax"`
	Shipping        domain.LooseNumber  `json:"shipping"`
	Discount        domain.LooseNumber  `json:"discount"`
	Notes           string              `json:"notes"`
	DraftID         string              `json:"draftId"`
}

type updateOrderRequest struct {
	PaymentStatus  *string `json:"paymentStatus"`
	PaymentMethod  *string `json:"paymentMethod"`
	Status         *string `json:"status"`
	TrackingNumber *string `json:"trackingNumber"`
	Carrier        *string `json:"carrier"`
	Notes          *string `json:"notes"`
	AdminNotes     *string `json:"adminNotes"`
	AssignedTo     *string `json:"assignedTo"`
}

type customizationTextPayload struct {
	Name       string `json:"name"`
	ClassName  string `json:"className"`
	SchoolName string `json:"schoolName"`
	Section    string `json:"section"`
}

type customizationPayload struct {
	IsCustomized   bool                     `json:"isCustomized"`
	TextData       customizationTextPayload `json:"textData"`
	PhotoURLs      []string                 `json:"photoUrls"`
	Font           string                   `json:"font,omitempty"`
	Color          string                   `json:"color,omitempty"`
	Style          string                   `json:"style,omitempty"`
	IsCartoonStyle bool                     `json:"isCartoonStyle"`
	PreviewImage   string                   `json:"previewImage,omitempty"`
	PrintFile      string                   `json:"printFile,omitempty"`
}

type productPayload struct {
	ProductID     string                `json:"productId"`
	Name          string                `json:"name"`
	Price         float64               `json:"price"`
	Quantity      int                   `json:"quantity"`
	TotalPrice    float64               `json:"totalPrice"`
	ImageURL      string                `json:"imageUrl,omitempty"`
	IsCustomized  bool                  `json:"isCustomized"`
	Customization *customizationPayload `json:"customization,omitempty"`
}

type shippingAddressPayload struct {
	UserName       string `json:"userName"`
	Phone          string `json:"phone"`
	AlternatePhone string `json:"alternatePhone,omitempty"`
	PostalCode     string `json:"postalCode"`
	Locality       string `json:"locality,omitempty"`
	Street         string `json:"street"`
	City           string `json:"city"`
	District       string `json:"district,omitempty"`
	State          string `json:"state,omitempty"`
	Country        string `json:"country"`
	Landmark       string `json:"landmark,omitempty"`
	AddressType    string `json:"addressType"`
}

type orderPayload struct {
	ID                   string                 `json:"id"`
	OrderNumber          string                 `json:"orderNumber"`
	QRCode               string                 `json:"qrCode,omitempty"`
	UserID               string                 `json:"userId"`
	UserName             string                 `json:"userName"`
	UserEmail            string                 `json:"userEmail"`
	Phone                string                 `json:"phone,omitempty"`
	Products             []productPayload       `json:"products"`
	Subtotal             float64                `json:"subtotal"`
	Tax                  float64                `json:"tax"`
	Shipping             float64                `json:"shipping"`
	Discount             float64                `json:"discount"`
	Total                float64                `json:"total"`
	ShippingAddress      shippingAddressPayload `json:"shippingAddress"`
	PaymentMethod        string                 `json:"paymentMethod"`
	PaymentStatus        string                 `json:"paymentStatus"`
	Status               string                 `json:"status"`
	TrackingNumber       string                 `json:"trackingNumber,omitempty"`
	Carrier              string                 `json:"carrier,omitempty"`
	ShippedAt            *time.Time             `json:"shippedAt,omitempty"`
	DeliveredAt          *time.Time             `json:"deliveredAt,omitempty"`
	CancelledAt          *time.Time             `json:"cancelledAt,omitempty"`
	Notes                string                 `json:"notes,omitempty"`
	AdminNotes           string                 `json:"adminNotes,omitempty"`
	AssignedTo           string                 `json:"assignedTo,omitempty"`
	PreviewImage         string                 `json:"previewImage,omitempty"`
	PaymentTransactionID string                 `json:"paymentTransactionId,omitempty"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

// OrderHandlers exposes the order creation, tracking, listing and update endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints. Creation and tracking are open so
// guests can order and follow a QR link; listing requires a caller identity
// and updates require the admin role.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/{orderRef}", h.getOrder)
	if h.authn != nil {
		r.With(h.authn.RequireVerified()).Get("/", h.listOrders)
		r.With(h.authn.RequireRoles(auth.RoleAdmin)).Patch("/{orderRef}", h.updateOrder)
		return
	}
	r.Get("/", h.listOrders)
	r.Patch("/{orderRef}", h.updateOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		Phone:           req.Phone,
		Products:        req.Products,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Tax:             float64(req.Tax),
		Shipping:        float64(req.Shipping),
		Discount:        float64(req.Discount),
		Notes:           req.Notes,
		DraftID:         req.DraftID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusCreated, map[string]any{
		"order": buildOrderPayload(order, true),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderRef"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"order": buildOrderPayload(order, callerIsAdmin(ctx)),
	})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, _ := auth.IdentityFromContext(ctx)
	admin := identity != nil && identity.IsAdmin()

	query := r.URL.Query()
	filter := services.OrderListFilter{
		Status: parseFilterValues(query["status"]),
	}

	if admin {
		filter.UserID = strings.TrimSpace(query.Get("userId"))
		filter.UserEmail = strings.TrimSpace(query.Get("userEmail"))
	} else {
		// Non-admin callers only ever see their own orders.
		if identity == nil || strings.TrimSpace(identity.UID) == "" {
			httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
			return
		}
		filter.UserID = identity.UID
	}

	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "created_after must be a valid RFC3339 timestamp"))
			return
		}
		filter.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "created_before must be a valid RFC3339 timestamp"))
			return
		}
		filter.To = &ts
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "invalid pagination parameters"))
		return
	}
	filter.Pagination = services.Pagination{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order, admin))
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"orders":        items,
		"nextPageToken": page.NextPageToken,
	})
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	update := domain.OrderUpdate{
		PaymentMethod:  req.PaymentMethod,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Notes:          req.Notes,
		AdminNotes:     req.AdminNotes,
		AssignedTo:     req.AssignedTo,
	}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		update.Status = &status
	}
	if req.PaymentStatus != nil {
		status := domain.PaymentStatus(*req.PaymentStatus)
		update.PaymentStatus = &status
	}

	var actorID string
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		actorID = identity.UID
	}

	order, err := h.orders.UpdateOrder(ctx, services.UpdateOrderCommand{
		OrderRef: chi.URLParam(r, "orderRef"),
		Update:   update,
		ActorID:  actorID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"order": buildOrderPayload(order, true),
	})
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", trimSentinel(err.Error())))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NotFound("order_not_found", "order not found"))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently", http.StatusConflict))
	default:
		writeTranslated(ctx, w, err)
	}
}

func buildOrderPayload(order domain.Order, includeQR bool) orderPayload {
	products := make([]productPayload, 0, len(order.Products))
	for _, product := range order.Products {
		item := productPayload{
			ProductID:    product.ProductID,
			Name:         product.Name,
			Price:        product.Price,
			Quantity:     product.Quantity,
			TotalPrice:   product.TotalPrice,
			ImageURL:     product.ImageURL,
			IsCustomized: product.IsCustomized,
		}
		if c := product.Customization; c != nil {
			item.Customization = &customizationPayload{
				IsCustomized: c.IsCustomized,
				TextData: customizationTextPayload{
					Name:       c.TextData.Name,
					ClassName:  c.TextData.ClassName,
					SchoolName: c.TextData.SchoolName,
					Section:    c.TextData.Section,
				},
				PhotoURLs:      c.PhotoURLs,
				Font:           c.Font,
				Color:          c.Color,
				Style:          c.Style,
				IsCartoonStyle: c.IsCartoonStyle,
				PreviewImage:   c.PreviewImage,
				PrintFile:      c.PrintFile,
			}
		}
		products = append(products, item)
	}

	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		UserName:    order.UserName,
		UserEmail:   order.UserEmail,
		Phone:       order.Phone,
		Products:    products,
		Subtotal:    order.Subtotal,
		Tax:         order.Tax,
		Shipping:    order.Shipping,
		Discount:    order.Discount,
		Total:       order.Total,
		ShippingAddress: shippingAddressPayload{
			UserName:       order.ShippingAddress.UserName,
			Phone:          order.ShippingAddress.Phone,
			AlternatePhone: order.ShippingAddress.AlternatePhone,
			PostalCode:     order.ShippingAddress.PostalCode,
			Locality:       order.ShippingAddress.Locality,
			Street:         order.ShippingAddress.Street,
			City:           order.ShippingAddress.City,
			District:       order.ShippingAddress.District,
			State:          order.ShippingAddress.State,
			Country:        order.ShippingAddress.Country,
			Landmark:       order.ShippingAddress.Landmark,
			AddressType:    order.ShippingAddress.AddressType,
		},
		PaymentMethod:        order.PaymentMethod,
		PaymentStatus:        string(order.PaymentStatus),
		Status:               string(order.Status),
		TrackingNumber:       order.TrackingNumber,
		Carrier:              order.Carrier,
		ShippedAt:            order.ShippedAt,
		DeliveredAt:          order.DeliveredAt,
		CancelledAt:          order.CancelledAt,
		Notes:                order.Notes,
		AdminNotes:           order.AdminNotes,
		AssignedTo:           order.AssignedTo,
		PreviewImage:         order.PreviewImage,
		PaymentTransactionID: order.PaymentTransactionID,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
	if includeQR {
		payload.QRCode = order.QRCode
	}
	return payload
}

func callerIsAdmin(ctx context.Context) bool {
	identity, ok := auth.IdentityFromContext(ctx)
	return ok && identity != nil && identity.IsAdmin()
}

func parseFilterValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func parseTimeParam(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
