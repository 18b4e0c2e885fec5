// Package validation implements the request body checks that guard product mutations.
//
// Bodies are decoded into a generic map first so that a field of the wrong JSON type
// is reported as a violation instead of failing the whole decode. Every rule is
// evaluated independently and all violations are reported together.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/product/service"
	"github.com/go-playground/validator/v10"
)

const (
	CreateFailedMessage = "Product validation failed"
	UpdateFailedMessage = "Product update validation failed"
	InvalidBodyMessage  = "Invalid request body"
	TooLargeMessage     = "Request entity too large"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindBool
)

// fieldRule describes one product field.
// constraint is a validator tag checked on values of the right type.
type fieldRule struct {
	field      string
	kind       fieldKind
	constraint string
	// create mode
	required string
	limit    string
	// update mode
	update string
}

// productRules lists the fields in the order their violations are reported.
var productRules = []fieldRule{
	{
		field:      "name",
		kind:       kindString,
		constraint: "max=100",
		required:   "Name is required and must be a string",
		limit:      "Name must be less than 100 characters",
		update:     "Name must be a string and less than 100 characters",
	},
	{
		field:      "description",
		kind:       kindString,
		constraint: "max=500",
		required:   "Description is required and must be a string",
		limit:      "Description must be less than 500 characters",
		update:     "Description must be a string and less than 500 characters",
	},
	{
		field:      "price",
		kind:       kindNumber,
		constraint: "gte=0",
		required:   "Price is required and must be a non-negative number",
		update:     "Price must be a non-negative number",
	},
	{
		field:    "category",
		kind:     kindString,
		required: "Category is required and must be a string",
		update:   "Category must be a string",
	},
	{
		field:    "inStock",
		kind:     kindBool,
		required: "inStock is required and must be a boolean",
		update:   "inStock must be a boolean",
	},
}

// Validator checks product bodies and hands the typed result to the next stage through the request context.
type Validator struct {
	validate *validator.Validate
	maxBytes int64
}

// NewValidator creates a Validator. Bodies larger than maxBytes are rejected as invalid; zero means no limit.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{
		validate: validator.New(),
		maxBytes: maxBytes,
	}
}

type createKey struct{}
type updateKey struct{}

// CreateInput returns the validated create body stored by ValidateCreate.
func CreateInput(ctx context.Context) (service.ProductCreateDto, bool) {
	dto, ok := ctx.Value(createKey{}).(service.ProductCreateDto)
	return dto, ok
}

// UpdateInput returns the validated update body stored by ValidateUpdate.
func UpdateInput(ctx context.Context) (service.ProductUpdateDto, bool) {
	dto, ok := ctx.Value(updateKey{}).(service.ProductUpdateDto)
	return dto, ok
}

// ValidateCreate requires every field to be present and well formed.
func (v *Validator) ValidateCreate(r *http.Request) (*http.Request, error) {
	body, err := v.decode(r)
	if err != nil {
		return nil, err
	}
	if details := v.checkCreate(body); len(details) > 0 {
		return nil, apperrors.Validation(CreateFailedMessage, details)
	}
	dto := service.ProductCreateDto{
		Name:        body["name"].(string),
		Description: body["description"].(string),
		Price:       body["price"].(float64),
		Category:    body["category"].(string),
		InStock:     body["inStock"].(bool),
	}
	return r.WithContext(context.WithValue(r.Context(), createKey{}, dto)), nil
}

// ValidateUpdate checks only the fields that are present. Unknown keys are ignored and never merged.
func (v *Validator) ValidateUpdate(r *http.Request) (*http.Request, error) {
	body, err := v.decode(r)
	if err != nil {
		return nil, err
	}
	if details := v.checkUpdate(body); len(details) > 0 {
		return nil, apperrors.Validation(UpdateFailedMessage, details)
	}
	var dto service.ProductUpdateDto
	if s, ok := body["name"].(string); ok {
		dto.Name = &s
	}
	if s, ok := body["description"].(string); ok {
		dto.Description = &s
	}
	if f, ok := body["price"].(float64); ok {
		dto.Price = &f
	}
	if s, ok := body["category"].(string); ok {
		dto.Category = &s
	}
	if b, ok := body["inStock"].(bool); ok {
		dto.InStock = &b
	}
	return r.WithContext(context.WithValue(r.Context(), updateKey{}, dto)), nil
}

// checkCreate reports missing or mistyped fields first, then length violations.
func (v *Validator) checkCreate(body map[string]any) []string {
	var details []string
	for _, rule := range productRules {
		value, present := body[rule.field]
		if !present || !v.presentInCreate(rule, value) {
			details = append(details, rule.required)
		}
	}
	for _, rule := range productRules {
		if rule.limit == "" {
			continue
		}
		if s, ok := body[rule.field].(string); ok && s != "" && !v.satisfies(s, rule.constraint) {
			details = append(details, rule.limit)
		}
	}
	return details
}

func (v *Validator) checkUpdate(body map[string]any) []string {
	var details []string
	for _, rule := range productRules {
		value, present := body[rule.field]
		if !present {
			continue
		}
		if !hasKind(rule.kind, value) || !v.satisfies(value, rule.constraint) {
			details = append(details, rule.update)
		}
	}
	return details
}

// presentInCreate reports whether value counts as supplied in create mode.
// Strings must be non-empty, numbers must satisfy their constraint as well.
func (v *Validator) presentInCreate(rule fieldRule, value any) bool {
	switch rule.kind {
	case kindString:
		s, ok := value.(string)
		return ok && s != ""
	case kindNumber:
		return hasKind(kindNumber, value) && v.satisfies(value, rule.constraint)
	default:
		return hasKind(rule.kind, value)
	}
}

func (v *Validator) satisfies(value any, tag string) bool {
	if tag == "" {
		return true
	}
	return v.validate.Var(value, tag) == nil
}

func hasKind(kind fieldKind, value any) bool {
	switch kind {
	case kindString:
		_, ok := value.(string)
		return ok
	case kindNumber:
		_, ok := value.(float64)
		return ok
	case kindBool:
		_, ok := value.(bool)
		return ok
	}
	return false
}

// decode reads the body as a JSON object. An empty body is an empty object.
func (v *Validator) decode(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return map[string]any{}, nil
	}
	var reader io.Reader = r.Body
	if v.maxBytes > 0 {
		reader = io.LimitReader(r.Body, v.maxBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.Wrap(err, InvalidBodyMessage, apperrors.KindBadRequest)
	}
	if v.maxBytes > 0 && int64(len(raw)) > v.maxBytes {
		return nil, apperrors.Wrap(errBodyTooLarge, TooLargeMessage, apperrors.KindPayloadTooLarge)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperrors.Wrap(err, InvalidBodyMessage, apperrors.KindBadRequest)
	}
	if body == nil {
		// a literal null
		return nil, apperrors.Wrap(errNotAnObject, InvalidBodyMessage, apperrors.KindBadRequest)
	}
	return body, nil
}

var (
	errBodyTooLarge = errors.New("request body too large")
	errNotAnObject  = errors.New("request body is not a JSON object")
)
