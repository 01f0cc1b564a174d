package domain

import (
	"encoding/json"
	"testing"
)

func TestHasCustomization(t *testing.T) {
	cases := []struct {
		name string
		in   RawProduct
		want bool
	}{
		{
			name: "flag set wins",
			in:   RawProduct{IsCustomized: true},
			want: true,
		},
		{
			name: "no flag no block",
			in:   RawProduct{Name: "Plain Bottle"},
			want: false,
		},
		{
			name: "whitespace only text is absent",
			in: RawProduct{Customization: &RawCustomization{
				TextData: RawCustomizationText{Name: "  "},
			}},
			want: false,
		},
		{
			name: "trimmed text counts",
			in: RawProduct{Customization: &RawCustomization{
				TextData: RawCustomizationText{SchoolName: " Sunrise Public School "},
			}},
			want: true,
		},
		{
			name: "photos count",
			in: RawProduct{Customization: &RawCustomization{
				PhotoURLs: LooseStringList{"http://x/a.png"},
			}},
			want: true,
		},
		{
			name: "style choice counts",
			in: RawProduct{Customization: &RawCustomization{
				Font: "comic",
			}},
			want: true,
		},
		{
			name: "empty block",
			in:   RawProduct{Customization: &RawCustomization{}},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasCustomization(tc.in); got != tc.want {
				t.Fatalf("HasCustomization() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeProductCoercion(t *testing.T) {
	var raw RawProduct
	payload := []byte(`{"productId":"prd_1","name":"Name Sticker","price":"120","quantity":2}`)
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := NormalizeProduct(raw)
	if got.Price != 120 || got.Quantity != 2 || got.TotalPrice != 240 {
		t.Fatalf("unexpected coercion: %+v", got)
	}
	if got.Customization != nil {
		t.Fatalf("expected no customization payload, got %+v", got.Customization)
	}
}

func TestNormalizeProductBadNumbersDefaultToZero(t *testing.T) {
	var raw RawProduct
	payload := []byte(`{"name":"Bottle","price":"abc","quantity":null}`)
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := NormalizeProduct(raw)
	if got.Price != 0 || got.Quantity != 0 || got.TotalPrice != 0 {
		t.Fatalf("bad numerics must coerce to zero, got %+v", got)
	}
}

func TestNormalizeProductPhotoURLWrap(t *testing.T) {
	var raw RawProduct
	payload := []byte(`{"name":"Photo Mug","customization":{"photoUrls":"http://x/a.png"}}`)
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := NormalizeProduct(raw)
	if !got.IsCustomized || got.Customization == nil {
		t.Fatalf("expected customization to be detected: %+v", got)
	}
	if len(got.Customization.PhotoURLs) != 1 || got.Customization.PhotoURLs[0] != "http://x/a.png" {
		t.Fatalf("bare string must wrap into a one-element list, got %v", got.Customization.PhotoURLs)
	}
}

func TestNormalizeProductOmittedPhotosBecomeEmptyList(t *testing.T) {
	raw := RawProduct{Customization: &RawCustomization{Font: "comic"}}
	got := NormalizeProduct(raw)
	if got.Customization == nil {
		t.Fatal("expected customization payload")
	}
	if got.Customization.PhotoURLs == nil || len(got.Customization.PhotoURLs) != 0 {
		t.Fatalf("omitted photos must normalize to an empty list, got %#v", got.Customization.PhotoURLs)
	}
}

func TestNormalizeProductPreviewImageFallback(t *testing.T) {
	raw := RawProduct{
		PreviewImage:  "http://x/preview.png",
		Customization: &RawCustomization{Style: "cartoon"},
	}
	got := NormalizeProduct(raw)
	if got.Customization.PreviewImage != "http://x/preview.png" {
		t.Fatalf("product-level preview must backfill, got %q", got.Customization.PreviewImage)
	}
}

func TestComputeTotals(t *testing.T) {
	products := []Product{
		{Price: 100, Quantity: 2, TotalPrice: 200},
		{Price: 50, Quantity: 1, TotalPrice: 50},
	}
	got := ComputeTotals(products, 10, 20, 5)
	if got.Subtotal != 250 {
		t.Fatalf("subtotal = %v, want 250", got.Subtotal)
	}
	if got.Total != 275 {
		t.Fatalf("total = %v, want 275", got.Total)
	}

	// Pure function: a second pass over the same inputs matches the first.
	again := ComputeTotals(products, 10, 20, 5)
	if again != got {
		t.Fatalf("totals not stable: %+v vs %+v", got, again)
	}
}

func TestComputeTotalsNegativeNotClamped(t *testing.T) {
	products := []Product{{TotalPrice: 100}}
	got := ComputeTotals(products, 0, 0, 500)
	if got.Total != -400 {
		t.Fatalf("total = %v, want -400", got.Total)
	}
}

func TestNormalizeShippingAddress(t *testing.T) {
	cases := []struct {
		name    string
		raw     *RawAddress
		wantErr bool
	}{
		{
			name:    "missing street",
			raw:     &RawAddress{PostalCode: "560001", City: "Bengaluru"},
			wantErr: true,
		},
		{
			name:    "nil address",
			raw:     nil,
			wantErr: true,
		},
		{
			name: "required trio present",
			raw:  &RawAddress{PostalCode: "560001", Street: "12 MG Road", City: "Bengaluru"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeShippingAddress(tc.raw, "Asha", "9000000000")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Country != "India" || got.AddressType != "home" {
				t.Fatalf("defaults not applied: %+v", got)
			}
			if got.UserName != "Asha" || got.Phone != "9000000000" {
				t.Fatalf("fallbacks not applied: %+v", got)
			}
		})
	}
}
