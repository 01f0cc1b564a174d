package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/fetchkids/api/internal/domain"
	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
	"github.com/fetchkids/api/internal/platform/pagination"
	"github.com/fetchkids/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists order aggregates in Firestore.
type OrderRepository struct {
	base     *pfirestore.Collection[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewCollection[orderDocument](provider, orderCollection)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert creates the order document, failing on id collisions.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}

	ref, err := r.base.Doc(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update overwrites the stored order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}

	if err := r.base.Set(ctx, order.ID, fromDomainOrder(order)); err != nil {
		return err
	}
	return nil
}

// FindByID loads an order by document id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// FindByOrderNumber loads an order by its human-facing order number.
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return domain.Order{}, errors.New("order number is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderNumber", "==", orderNumber).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.findByOrderNumber", errNotFound)
	}
	return toDomainOrder(docs[0].ID, docs[0].Data), nil
}

// List returns a page of orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		startAfter, err = cursorValues(cursor)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if uid := strings.TrimSpace(filter.UserID); uid != "" {
			q = q.Where("userId", "==", uid)
		}
		if email := strings.ToLower(strings.TrimSpace(filter.UserEmail)); email != "" {
			q = q.Where("userEmail", "==", email)
		}
		if len(filter.Status) == 1 {
			q = q.Where("status", "==", filter.Status[0])
		} else if len(filter.Status) > 1 {
			q = q.Where("status", "in", filter.Status)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) > 0 {
			q = q.StartAfter(startAfter...)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	page.Items = make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		page.Items = append(page.Items, toDomainOrder(doc.ID, doc.Data))
	}

	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		cursor := pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt.UTC().Format(time.RFC3339Nano), last.ID},
		}
		token, err := cursor.Encode()
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}

	return page, nil
}

// cursorValues converts a decoded page token back into Firestore cursor
// values, parsing the createdAt component to a timestamp.
func cursorValues(cursor pagination.Cursor) ([]any, error) {
	if len(cursor.StartAfter) == 0 {
		return nil, nil
	}
	if len(cursor.StartAfter) != 2 {
		return nil, pagination.ErrInvalidPageToken
	}
	createdRaw, ok := cursor.StartAfter[0].(string)
	if !ok {
		return nil, pagination.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	id, ok := cursor.StartAfter[1].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, pagination.ErrInvalidPageToken
	}
	return []any{createdAt, id}, nil
}

type orderDocument struct {
	OrderNumber          string           `firestore:"orderNumber"`
	QRCode               string           `firestore:"qrCode,omitempty"`
	UserID               string           `firestore:"userId"`
	UserName             string           `firestore:"userName,omitempty"`
	UserEmail            string           `firestore:"userEmail"`
	Phone                string           `firestore:"phone,omitempty"`
	Products             []lineDocument   `firestore:"products"`
	Subtotal             float64          `firestore:"subtotal"`
	Tax                  float64          `firestore:"tax"`
	Shipping             float64          `firestore:"shipping"`
	Discount             float64          `firestore:"discount"`
	Total                float64          `firestore:"total"`
	ShippingAddress      addressDocument  `firestore:"shippingAddress"`
	PaymentMethod        string           `firestore:"paymentMethod,omitempty"`
	PaymentStatus        string           `firestore:"paymentStatus"`
	Status               string           `firestore:"status"`
	TrackingNumber       string           `firestore:"trackingNumber,omitempty"`
	Carrier              string           `firestore:"carrier,omitempty"`
	ShippedAt            *time.Time       `firestore:"shippedAt,omitempty"`
	DeliveredAt          *time.Time       `firestore:"deliveredAt,omitempty"`
	CancelledAt          *time.Time       `firestore:"cancelledAt,omitempty"`
	Notes                string           `firestore:"notes,omitempty"`
	AdminNotes           string           `firestore:"adminNotes,omitempty"`
	AssignedTo           string           `firestore:"assignedTo,omitempty"`
	PrintFileURL         string           `firestore:"printFileUrl,omitempty"`
	DriveFolder          string           `firestore:"driveFolder,omitempty"`
	PreviewImage         string           `firestore:"previewImage,omitempty"`
	PaymentTransactionID string           `firestore:"paymentTransactionId,omitempty"`
	CreatedAt            time.Time        `firestore:"createdAt"`
	UpdatedAt            time.Time        `firestore:"updatedAt"`
}

type lineDocument struct {
	ProductID     string                 `firestore:"productId,omitempty"`
	Name          string                 `firestore:"name"`
	Price         float64                `firestore:"price"`
	Quantity      int                    `firestore:"quantity"`
	TotalPrice    float64                `firestore:"totalPrice"`
	ImageURL      string                 `firestore:"imageUrl,omitempty"`
	IsCustomized  bool                   `firestore:"isCustomized"`
	Customization *customizationDocument `firestore:"customization,omitempty"`
}

type customizationDocument struct {
	IsCustomized   bool     `firestore:"isCustomized"`
	Name           string   `firestore:"name,omitempty"`
	ClassName      string   `firestore:"className,omitempty"`
	SchoolName     string   `firestore:"schoolName,omitempty"`
	Section        string   `firestore:"section,omitempty"`
	PhotoURLs      []string `firestore:"photoUrls"`
	Font           string   `firestore:"font,omitempty"`
	Color          string   `firestore:"color,omitempty"`
	Style          string   `firestore:"style,omitempty"`
	IsCartoonStyle bool     `firestore:"isCartoonStyle"`
	PreviewImage   string   `firestore:"previewImage,omitempty"`
	PrintFile      string   `firestore:"printFile,omitempty"`
}

type addressDocument struct {
	UserName       string `firestore:"userName,omitempty"`
	Phone          string `firestore:"phone,omitempty"`
	AlternatePhone string `firestore:"alternatePhone,omitempty"`
	PostalCode     string `firestore:"postalCode"`
	Locality       string `firestore:"locality,omitempty"`
	Street         string `firestore:"street"`
	City           string `firestore:"city"`
	District       string `firestore:"district,omitempty"`
	State          string `firestore:"state,omitempty"`
	Country        string `firestore:"country"`
	Landmark       string `firestore:"landmark,omitempty"`
	AddressType    string `firestore:"addressType"`
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:          strings.TrimSpace(order.OrderNumber),
		QRCode:               order.QRCode,
		UserID:               strings.TrimSpace(order.UserID),
		UserName:             strings.TrimSpace(order.UserName),
		UserEmail:            strings.ToLower(strings.TrimSpace(order.UserEmail)),
		Phone:                strings.TrimSpace(order.Phone),
		Products:             fromDomainLines(order.Products),
		Subtotal:             order.Subtotal,
		Tax:                  order.Tax,
		Shipping:             order.Shipping,
		Discount:             order.Discount,
		Total:                order.Total,
		ShippingAddress:      fromDomainAddress(order.ShippingAddress),
		PaymentMethod:        strings.TrimSpace(order.PaymentMethod),
		PaymentStatus:        string(order.PaymentStatus),
		Status:               string(order.Status),
		TrackingNumber:       strings.TrimSpace(order.TrackingNumber),
		Carrier:              strings.TrimSpace(order.Carrier),
		ShippedAt:            order.ShippedAt,
		DeliveredAt:          order.DeliveredAt,
		CancelledAt:          order.CancelledAt,
		Notes:                order.Notes,
		AdminNotes:           order.AdminNotes,
		AssignedTo:           strings.TrimSpace(order.AssignedTo),
		PrintFileURL:         strings.TrimSpace(order.PrintFileURL),
		DriveFolder:          strings.TrimSpace(order.DriveFolder),
		PreviewImage:         strings.TrimSpace(order.PreviewImage),
		PaymentTransactionID: strings.TrimSpace(order.PaymentTransactionID),
		CreatedAt:            order.CreatedAt.UTC(),
		UpdatedAt:            order.UpdatedAt.UTC(),
	}
	if doc.Products == nil {
		doc.Products = []lineDocument{}
	}
	return doc
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	return domain.Order{
		ID:                   id,
		OrderNumber:          doc.OrderNumber,
		QRCode:               doc.QRCode,
		UserID:               doc.UserID,
		UserName:             doc.UserName,
		UserEmail:            doc.UserEmail,
		Phone:                doc.Phone,
		Products:             toDomainLines(doc.Products),
		Subtotal:             doc.Subtotal,
		Tax:                  doc.Tax,
		Shipping:             doc.Shipping,
		Discount:             doc.Discount,
		Total:                doc.Total,
		ShippingAddress:      toDomainAddress(doc.ShippingAddress),
		PaymentMethod:        doc.PaymentMethod,
		PaymentStatus:        domain.PaymentStatus(doc.PaymentStatus),
		Status:               domain.OrderStatus(doc.Status),
		TrackingNumber:       doc.TrackingNumber,
		Carrier:              doc.Carrier,
		ShippedAt:            doc.ShippedAt,
		DeliveredAt:          doc.DeliveredAt,
		CancelledAt:          doc.CancelledAt,
		Notes:                doc.Notes,
		AdminNotes:           doc.AdminNotes,
		AssignedTo:           doc.AssignedTo,
		PrintFileURL:         doc.PrintFileURL,
		DriveFolder:          doc.DriveFolder,
		PreviewImage:         doc.PreviewImage,
		PaymentTransactionID: doc.PaymentTransactionID,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
	}
}

func fromDomainLines(products []domain.Product) []lineDocument {
	if len(products) == 0 {
		return nil
	}
	docs := make([]lineDocument, 0, len(products))
	for _, p := range products {
		line := lineDocument{
			ProductID:    strings.TrimSpace(p.ProductID),
			Name:         strings.TrimSpace(p.Name),
			Price:        p.Price,
			Quantity:     p.Quantity,
			TotalPrice:   p.TotalPrice,
			ImageURL:     strings.TrimSpace(p.ImageURL),
			IsCustomized: p.IsCustomized,
		}
		if p.Customization != nil {
			c := p.Customization
			photos := c.PhotoURLs
			if photos == nil {
				photos = []string{}
			}
			line.Customization = &customizationDocument{
				IsCustomized:   c.IsCustomized,
				Name:           c.TextData.Name,
				ClassName:      c.TextData.ClassName,
				SchoolName:     c.TextData.SchoolName,
				Section:        c.TextData.Section,
				PhotoURLs:      photos,
				Font:           c.Font,
				Color:          c.Color,
				Style:          c.Style,
				IsCartoonStyle: c.IsCartoonStyle,
				PreviewImage:   c.PreviewImage,
				PrintFile:      c.PrintFile,
			}
		}
		docs = append(docs, line)
	}
	return docs
}

func toDomainLines(docs []lineDocument) []domain.Product {
	if len(docs) == 0 {
		return nil
	}
	products := make([]domain.Product, 0, len(docs))
	for _, line := range docs {
		p := domain.Product{
			ProductID:    line.ProductID,
			Name:         line.Name,
			Price:        line.Price,
			Quantity:     line.Quantity,
			TotalPrice:   line.TotalPrice,
			ImageURL:     line.ImageURL,
			IsCustomized: line.IsCustomized,
		}
		if line.Customization != nil {
			c := line.Customization
			photos := c.PhotoURLs
			if photos == nil {
				photos = []string{}
			}
			p.Customization = &domain.Customization{
				IsCustomized: c.IsCustomized,
				TextData: domain.CustomizationText{
					Name:       c.Name,
					ClassName:  c.ClassName,
					SchoolName: c.SchoolName,
					Section:    c.Section,
				},
				PhotoURLs:      photos,
				Font:           c.Font,
				Color:          c.Color,
				Style:          c.Style,
				IsCartoonStyle: c.IsCartoonStyle,
				PreviewImage:   c.PreviewImage,
				PrintFile:      c.PrintFile,
			}
		}
		products = append(products, p)
	}
	return products
}

func fromDomainAddress(addr domain.ShippingAddress) addressDocument {
	return addressDocument{
		UserName:       strings.TrimSpace(addr.UserName),
		Phone:          strings.TrimSpace(addr.Phone),
		AlternatePhone: strings.TrimSpace(addr.AlternatePhone),
		PostalCode:     strings.TrimSpace(addr.PostalCode),
		Locality:       strings.TrimSpace(addr.Locality),
		Street:         strings.TrimSpace(addr.Street),
		City:           strings.TrimSpace(addr.City),
		District:       strings.TrimSpace(addr.District),
		State:          strings.TrimSpace(addr.State),
		Country:        strings.TrimSpace(addr.Country),
		Landmark:       strings.TrimSpace(addr.Landmark),
		AddressType:    strings.TrimSpace(addr.AddressType),
	}
}

func toDomainAddress(doc addressDocument) domain.ShippingAddress {
	return domain.ShippingAddress{
		UserName:       doc.UserName,
		Phone:          doc.Phone,
		AlternatePhone: doc.AlternatePhone,
		PostalCode:     doc.PostalCode,
		Locality:       doc.Locality,
		Street:         doc.Street,
		City:           doc.City,
		District:       doc.District,
		State:          doc.State,
		Country:        doc.Country,
		Landmark:       doc.Landmark,
		AddressType:    doc.AddressType,
	}
}
