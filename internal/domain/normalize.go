package domain

import (
	"errors"
	"strings"
)

// ErrIncompleteShippingAddress is returned when a shipping address is missing
// one of the fields required for delivery.
var ErrIncompleteShippingAddress = errors.New("incomplete shipping address")

// HasCustomization reports whether a raw product carries meaningful
// customization. A truthy top-level flag wins outright; otherwise the
// customization block must contain at least one substantive value: a
// non-whitespace text field, an uploaded photo, or a styling choice.
func HasCustomization(p RawProduct) bool {
	if bool(p.IsCustomized) {
		return true
	}
	c := p.Customization
	if c == nil {
		return false
	}
	for _, v := range []string{c.TextData.Name, c.TextData.ClassName, c.TextData.SchoolName, c.TextData.Section} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	if len(c.PhotoURLs) > 0 {
		return true
	}
	return c.Font != "" || c.Color != "" || c.Style != "" || c.PreviewImage != "" || c.PrintFile != ""
}

// NormalizeProduct maps one raw line item to its canonical form. Price and
// quantity arrive already coerced (invalid input decodes to zero and is kept,
// not rejected). The customization block is attached only when
// HasCustomization fires; otherwise the product carries none at all.
func NormalizeProduct(p RawProduct) Product {
	price := float64(p.Price)
	qty := int(p.Quantity)

	out := Product{
		ProductID:  p.ProductID,
		Name:       p.Name,
		Price:      price,
		Quantity:   qty,
		TotalPrice: price * float64(qty),
		ImageURL:   p.ImageURL,
	}
	if !HasCustomization(p) {
		return out
	}

	out.IsCustomized = true
	c := p.Customization
	if c == nil {
		c = &RawCustomization{}
	}
	photos := []string(c.PhotoURLs)
	if photos == nil {
		photos = []string{}
	}
	preview := c.PreviewImage
	if preview == "" {
		preview = p.PreviewImage
	}
	out.Customization = &Customization{
		IsCustomized: true,
		TextData: CustomizationText{
			Name:       c.TextData.Name,
			ClassName:  c.TextData.ClassName,
			SchoolName: c.TextData.SchoolName,
			Section:    c.TextData.Section,
		},
		PhotoURLs:      photos,
		Font:           c.Font,
		Color:          c.Color,
		Style:          c.Style,
		IsCartoonStyle: bool(c.IsCartoonStyle),
		PreviewImage:   preview,
		PrintFile:      c.PrintFile,
	}
	return out
}

// OrderTotals carries the computed monetary summary of an order.
type OrderTotals struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Discount float64
	Total    float64
}

// ComputeTotals sums the normalized products and folds in tax, shipping and
// discount. Total is not clamped; a discount larger than the rest yields a
// negative total.
func ComputeTotals(products []Product, tax, shipping, discount float64) OrderTotals {
	var subtotal float64
	for _, p := range products {
		subtotal += p.TotalPrice
	}
	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal + tax + shipping - discount,
	}
}

// NormalizeShippingAddress builds the canonical delivery address from the raw
// payload, falling back to the order-level name and phone, then verifies the
// fields a courier cannot do without. Country defaults to India and address
// type to home.
func NormalizeShippingAddress(raw *RawAddress, fallbackName, fallbackPhone string) (ShippingAddress, error) {
	if raw == nil {
		raw = &RawAddress{}
	}
	addr := ShippingAddress{
		UserName:       raw.UserName,
		Phone:          raw.Phone,
		AlternatePhone: raw.AlternatePhone,
		PostalCode:     raw.PostalCode,
		Locality:       raw.Locality,
		Street:         raw.Street,
		City:           raw.City,
		District:       raw.District,
		State:          raw.State,
		Country:        raw.Country,
		Landmark:       raw.Landmark,
		AddressType:    raw.AddressType,
	}
	if addr.UserName == "" {
		addr.UserName = fallbackName
	}
	if addr.Phone == "" {
		addr.Phone = fallbackPhone
	}
	if addr.Country == "" {
		addr.Country = "India"
	}
	if addr.AddressType == "" {
		addr.AddressType = "home"
	}
	if addr.PostalCode == "" || addr.Street == "" || addr.City == "" {
		return ShippingAddress{}, ErrIncompleteShippingAddress
	}
	return addr, nil
}
