package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
)

const orderDraftCollection = "order_drafts"

// OrderDraftRepository persists work-in-progress orders in Firestore. Drafts
// keep products in raw form so normalization happens once, at order creation.
type OrderDraftRepository struct {
	base *pfirestore.Collection[orderDraftDocument]
}

// NewOrderDraftRepository constructs a Firestore-backed order draft repository.
func NewOrderDraftRepository(provider *pfirestore.Provider) (*OrderDraftRepository, error) {
	if provider == nil {
		return nil, errors.New("order draft repository requires firestore provider")
	}
	base := pfirestore.NewCollection[orderDraftDocument](provider, orderDraftCollection)
	return &OrderDraftRepository{base: base}, nil
}

// Insert creates the draft document, failing on id collisions.
func (r *OrderDraftRepository) Insert(ctx context.Context, draft domain.OrderDraft) error {
	if r == nil || r.base == nil {
		return errors.New("order draft repository not initialised")
	}
	if strings.TrimSpace(draft.ID) == "" {
		return errors.New("draft id is required")
	}

	ref, err := r.base.Doc(ctx, draft.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainDraft(draft)); err != nil {
		return pfirestore.WrapError("order_drafts.insert", err)
	}
	return nil
}

// Update overwrites the stored draft document.
func (r *OrderDraftRepository) Update(ctx context.Context, draft domain.OrderDraft) error {
	if r == nil || r.base == nil {
		return errors.New("order draft repository not initialised")
	}
	if strings.TrimSpace(draft.ID) == "" {
		return errors.New("draft id is required")
	}

	if err := r.base.Set(ctx, draft.ID, fromDomainDraft(draft)); err != nil {
		return err
	}
	return nil
}

// FindByID loads a draft by document id.
func (r *OrderDraftRepository) FindByID(ctx context.Context, draftID string) (domain.OrderDraft, error) {
	if r == nil || r.base == nil {
		return domain.OrderDraft{}, errors.New("order draft repository not initialised")
	}
	if strings.TrimSpace(draftID) == "" {
		return domain.OrderDraft{}, errors.New("draft id is required")
	}

	doc, err := r.base.Get(ctx, draftID)
	if err != nil {
		return domain.OrderDraft{}, err
	}
	return toDomainDraft(doc.ID, doc.Data), nil
}

// Delete removes the draft, typically after it was converted to an order.
func (r *OrderDraftRepository) Delete(ctx context.Context, draftID string) error {
	if r == nil || r.base == nil {
		return errors.New("order draft repository not initialised")
	}
	if strings.TrimSpace(draftID) == "" {
		return errors.New("draft id is required")
	}

	err := r.base.Delete(ctx, draftID)
	return err
}

type orderDraftDocument struct {
	UserName        string              `firestore:"userName,omitempty"`
	UserEmail       string              `firestore:"userEmail,omitempty"`
	Phone           string              `firestore:"phone,omitempty"`
	Products        []rawLineDocument   `firestore:"products"`
	ShippingAddress *rawAddressDocument `firestore:"shippingAddress,omitempty"`
	ExpiresAt       time.Time           `firestore:"expiresAt"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

type rawLineDocument struct {
	ProductID     string                    `firestore:"productId,omitempty"`
	Name          string                    `firestore:"name,omitempty"`
	Price         float64                   `firestore:"price"`
	Quantity      float64                   `firestore:"quantity"`
	ImageURL      string                    `firestore:"imageUrl,omitempty"`
	PreviewImage  string                    `firestore:"previewImage,omitempty"`
	IsCustomized  bool                      `firestore:"isCustomized"`
	Customization *rawCustomizationDocument `firestore:"customization,omitempty"`
}

type rawCustomizationDocument struct {
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

type rawAddressDocument struct {
	UserName       string `firestore:"userName,omitempty"`
	Phone          string `firestore:"phone,omitempty"`
	AlternatePhone string `firestore:"alternatePhone,omitempty"`
	PostalCode     string `firestore:"postalCode,omitempty"`
	Locality       string `firestore:"locality,omitempty"`
	Street         string `firestore:"street,omitempty"`
	City           string `firestore:"city,omitempty"`
	District       string `firestore:"district,omitempty"`
	State          string `firestore:"state,omitempty"`
	Country        string `firestore:"country,omitempty"`
	Landmark       string `firestore:"landmark,omitempty"`
	AddressType    string `firestore:"addressType,omitempty"`
}

func fromDomainDraft(draft domain.OrderDraft) orderDraftDocument {
	doc := orderDraftDocument{
		UserName:  strings.TrimSpace(draft.UserName),
		UserEmail: strings.ToLower(strings.TrimSpace(draft.UserEmail)),
		Phone:     strings.TrimSpace(draft.Phone),
		Products:  fromRawLines(draft.Products),
		ExpiresAt: draft.ExpiresAt.UTC(),
		CreatedAt: draft.CreatedAt.UTC(),
		UpdatedAt: draft.UpdatedAt.UTC(),
	}
	if doc.Products == nil {
		doc.Products = []rawLineDocument{}
	}
	if draft.ShippingAddress != nil {
		addr := fromRawAddress(*draft.ShippingAddress)
		doc.ShippingAddress = &addr
	}
	return doc
}

func toDomainDraft(id string, doc orderDraftDocument) domain.OrderDraft {
	draft := domain.OrderDraft{
		ID:        id,
		UserName:  doc.UserName,
		UserEmail: doc.UserEmail,
		Phone:     doc.Phone,
		Products:  toRawLines(doc.Products),
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.ShippingAddress != nil {
		addr := toRawAddress(*doc.ShippingAddress)
		draft.ShippingAddress = &addr
	}
	return draft
}

func fromRawLines(products []domain.RawProduct) []rawLineDocument {
	if len(products) == 0 {
		return nil
	}
	docs := make([]rawLineDocument, 0, len(products))
	for _, p := range products {
		line := rawLineDocument{
			ProductID:    strings.TrimSpace(p.ProductID),
			Name:         strings.TrimSpace(p.Name),
			Price:        float64(p.Price),
			Quantity:     float64(p.Quantity),
			ImageURL:     strings.TrimSpace(p.ImageURL),
			PreviewImage: strings.TrimSpace(p.PreviewImage),
			IsCustomized: bool(p.IsCustomized),
		}
		if p.Customization != nil {
			c := p.Customization
			photos := []string(c.PhotoURLs)
			if photos == nil {
				photos = []string{}
			}
			line.Customization = &rawCustomizationDocument{
				IsCustomized:   bool(c.IsCustomized),
				Name:           c.TextData.Name,
				ClassName:      c.TextData.ClassName,
				SchoolName:     c.TextData.SchoolName,
				Section:        c.TextData.Section,
				PhotoURLs:      photos,
				Font:           c.Font,
				Color:          c.Color,
				Style:          c.Style,
				IsCartoonStyle: bool(c.IsCartoonStyle),
				PreviewImage:   c.PreviewImage,
				PrintFile:      c.PrintFile,
			}
		}
		docs = append(docs, line)
	}
	return docs
}

func toRawLines(docs []rawLineDocument) []domain.RawProduct {
	if len(docs) == 0 {
		return nil
	}
	products := make([]domain.RawProduct, 0, len(docs))
	for _, line := range docs {
		p := domain.RawProduct{
			ProductID:    line.ProductID,
			Name:         line.Name,
			Price:        domain.LooseNumber(line.Price),
			Quantity:     domain.LooseNumber(line.Quantity),
			ImageURL:     line.ImageURL,
			PreviewImage: line.PreviewImage,
			IsCustomized: domain.LooseBool(line.IsCustomized),
		}
		if line.Customization != nil {
			c := line.Customization
			photos := c.PhotoURLs
			if photos == nil {
				photos = []string{}
			}
			p.Customization = &domain.RawCustomization{
				IsCustomized: domain.LooseBool(c.IsCustomized),
				TextData: domain.RawCustomizationText{
					Name:       c.Name,
					ClassName:  c.ClassName,
					SchoolName: c.SchoolName,
					Section:    c.Section,
				},
				PhotoURLs:      domain.LooseStringList(photos),
				Font:           c.Font,
				Color:          c.Color,
				Style:          c.Style,
				IsCartoonStyle: domain.LooseBool(c.IsCartoonStyle),
				PreviewImage:   c.PreviewImage,
				PrintFile:      c.PrintFile,
			}
		}
		products = append(products, p)
	}
	return products
}

func fromRawAddress(addr domain.RawAddress) rawAddressDocument {
	return rawAddressDocument{
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

func toRawAddress(doc rawAddressDocument) domain.RawAddress {
	return domain.RawAddress{
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
