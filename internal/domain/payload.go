package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// LooseNumber decodes JSON numbers that clients may send as numbers, numeric
// strings, null, or garbage. Anything unparseable decodes to zero rather than
// failing the request.
type LooseNumber float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*n = 0
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		*n = LooseNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = LooseNumber(f)
		return nil
	}
	*n = 0
	return nil
}

// LooseStringList decodes a JSON value that may be a single string or a list
// of strings. A bare string becomes a one-element list; null becomes nil.
type LooseStringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *LooseStringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = LooseStringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = LooseStringList(many)
	return nil
}

// LooseBool decodes truthiness the way dynamic clients produce it: booleans,
// non-zero numbers, and any non-empty string count as true. The strings
// "false" and "0" are true, matching how loosely typed upstreams evaluate
// flag fields.
type LooseBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *LooseBool) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch trimmed {
	case "", "null", "false", "0", `""`:
		*b = false
		return nil
	case "true":
		*b = true
		return nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		*b = f != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = s != ""
		return nil
	}
	// Objects and arrays are truthy.
	*b = true
	return nil
}

// RawCustomizationText mirrors the client payload for printed text fields.
type RawCustomizationText struct {
	Name       string `json:"name"`
	ClassName  string `json:"className"`
	SchoolName string `json:"schoolName"`
	Section    string `json:"section"`
}

// RawCustomization is the untrusted customization block as submitted by the
// client. PhotoURLs tolerates both a bare string and a list.
type RawCustomization struct {
	IsCustomized   LooseBool            `json:"isCustomized"`
	TextData       RawCustomizationText `json:"textData"`
	PhotoURLs      LooseStringList      `json:"photoUrls"`
	Font           string               `json:"font"`
	Color          string               `json:"color"`
	Style          string               `json:"style"`
	IsCartoonStyle LooseBool            `json:"isCartoonStyle"`
	PreviewImage   string               `json:"previewImage"`
	PrintFile      string               `json:"printFile"`
}

// RawProduct is one untrusted line item from the order payload. Numeric
// fields tolerate strings and absent values.
type RawProduct struct {
	ProductID     string            `json:"productId"`
	Name          string            `json:"name"`
	Price         LooseNumber       `json:"price"`
	Quantity      LooseNumber       `json:"quantity"`
	ImageURL      string            `json:"imageUrl"`
	PreviewImage  string            `json:"previewImage"`
	IsCustomized  LooseBool         `json:"isCustomized"`
	Customization *RawCustomization `json:"customization"`
}

// RawAddress is the untrusted shipping address from the order payload.
type RawAddress struct {
	UserName       string `json:"userName"`
	Phone          string `json:"phone"`
	AlternatePhone string `json:"alternatePhone"`
	PostalCode     string `json:"postalCode"`
	Locality       string `json:"locality"`
	Street         string `json:"street"`
	City           string `json:"city"`
	District       string `json:"district"`
	State          string `json:"state"`
	Country        string `json:"country"`
	Landmark       string `json:"landmark"`
	AddressType    string `json:"addressType"`
}
