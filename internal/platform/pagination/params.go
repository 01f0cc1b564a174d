package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the number of items returned when the client omits page_size.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps page_size to prevent unbounded queries.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid page_size")
	ErrInvalidPageToken = errors.New("pagination: invalid page_token")
	ErrInvalidSort      = errors.New("pagination: invalid sort")
)

// Cursor carries the ordered field values the next query resumes after.
type Cursor struct {
	StartAfter []any `json:"startAfter,omitempty"`
}

// Encode serialises the cursor into a base64 URL-safe page token. An empty
// cursor encodes to the empty string.
func (c Cursor) Encode() (string, error) {
	if len(c.StartAfter) == 0 {
		return "", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("pagination: encode token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a page token produced by Cursor.Encode.
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var cursor Cursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return cursor, nil
}

// Params bundles the pagination values extracted from a list request.
type Params struct {
	PageSize  int
	PageToken string
	Cursor    Cursor
	// SortDesc orders results newest-first when true. Listing endpoints
	// default to descending creation time.
	SortDesc bool
}

// Options control defaults and limits applied during parsing.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (o Options) normalised() Options {
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPageSize
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = DefaultPageSize
	}
	if o.DefaultPageSize > o.MaxPageSize {
		o.DefaultPageSize = o.MaxPageSize
	}
	return o
}

// FromRequest parses page_size, page_token, and sort from the request query.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns normalised Params.
func Parse(values url.Values, opts Options) (Params, error) {
	opts = opts.normalised()
	params := Params{PageSize: opts.DefaultPageSize, SortDesc: true}

	if raw := strings.TrimSpace(values.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
		}
		if size <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
		}
		if size > opts.MaxPageSize {
			size = opts.MaxPageSize
		}
		params.PageSize = size
	}

	if token := strings.TrimSpace(values.Get("page_token")); token != "" {
		cursor, err := DecodeCursor(token)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = token
		params.Cursor = cursor
	}

	switch sort := strings.ToLower(strings.TrimSpace(values.Get("sort"))); sort {
	case "", "desc":
	case "asc":
		params.SortDesc = false
	default:
		return Params{}, fmt.Errorf("%w: %q", ErrInvalidSort, sort)
	}

	return params, nil
}
