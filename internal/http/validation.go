package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/fjod/acp-checkout/domain"
	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds every request body.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ItemDTO caps quantity per line so that pricing stays far from int64 limits.
type ItemDTO struct {
	SKU       *string `json:"sku" validate:"omitnil,min=1"`
	ProductID *string `json:"productId" validate:"omitnil,min=1"`
	Quantity  *int64  `json:"quantity" validate:"required,gt=0,lte=10000"`
}

type AddressDTO struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"len=2"`
}

type CreateCheckoutRequestDTO struct {
	Items           []ItemDTO   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *AddressDTO `json:"shippingAddress"`
	ShippingOption  *string     `json:"shippingOption" validate:"omitnil,oneof=standard express"`
	Email           *string     `json:"email" validate:"omitnil,email"`
}

type UpdateCheckoutRequestDTO struct {
	SessionID       string      `json:"sessionId" validate:"uuid"`
	Items           []ItemDTO   `json:"items" validate:"omitnil,min=1,dive"`
	ShippingAddress *AddressDTO `json:"shippingAddress"`
	ShippingOption  *string     `json:"shippingOption" validate:"omitnil,oneof=standard express"`
}

type SharedPaymentTokenDTO struct {
	Provider string `json:"provider" validate:"eq=paypal"`
	Token    string `json:"token" validate:"min=3"`
}

type CompleteCheckoutRequestDTO struct {
	SessionID          string                 `json:"sessionId" validate:"uuid"`
	SharedPaymentToken *SharedPaymentTokenDTO `json:"sharedPaymentToken" validate:"required"`
	Email              string                 `json:"email" validate:"required,email"`
}

type CancelCheckoutRequestDTO struct {
	SessionID string  `json:"sessionId" validate:"uuid"`
	Reason    *string `json:"reason"`
}

// fieldErrors collects messages per field path, e.g. "items.0.quantity".
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &domain.Error{
		Kind:    domain.KindBadRequest,
		Message: "Validation failed",
		Details: map[string]any{"formErrors": []string{}, "fieldErrors": f},
	}
}

func validationFailed(msg string) error {
	return &domain.Error{
		Kind:    domain.KindBadRequest,
		Message: "Validation failed",
		Details: map[string]any{"formErrors": []string{msg}, "fieldErrors": map[string][]string{}},
	}
}

// check runs the struct tags of dto and reports failures per field path.
func check(dto any) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationFailed(err.Error())
	}
	errs := fieldErrors{}
	for _, fe := range verrs {
		errs.add(fieldPath(fe.Namespace()), message(fe))
	}
	return errs.err()
}

// fieldPath turns "Dto.items[0].quantity" into "items.0.quantity".
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		path = namespace
	}
	path = strings.ReplaceAll(path, "[", ".")
	return strings.ReplaceAll(path, "]", "")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Array must contain at least %s element(s)", fe.Param())
		}
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "len":
		return fmt.Sprintf("String must contain exactly %s character(s)", fe.Param())
	case "gt":
		return "Number must be greater than " + fe.Param()
	case "lte":
		return "Number must be less than or equal to " + fe.Param()
	case "oneof":
		return "Invalid enum value. Expected '" + strings.ReplaceAll(fe.Param(), " ", "' | '") + "'"
	case "eq":
		return fmt.Sprintf("Invalid literal value, expected %q", fe.Param())
	case "email":
		return "Invalid email"
	case "uuid":
		return "Invalid uuid"
	default:
		return "Failed " + fe.Tag() + " validation"
	}
}

// decode reads a single JSON object from a body of at most MaxBodyBytes.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return validationFailed("Request body too large")
		case errors.Is(err, io.EOF):
			return validationFailed("Request body is required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			errs := fieldErrors{}
			errs.add(typeErr.Field, "Expected "+typeErr.Type.String()+", received "+typeErr.Value)
			return errs.err()
		default:
			return validationFailed("Invalid JSON body")
		}
	}
	if dec.More() {
		return validationFailed("Request body must contain a single JSON object")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (dto ItemDTO) toDomain() domain.ItemRequest {
	item := domain.ItemRequest{SKU: deref(dto.SKU), ProductID: deref(dto.ProductID)}
	if dto.Quantity != nil {
		item.Quantity = *dto.Quantity
	}
	return item
}

func itemsToDomain(items []ItemDTO) []domain.ItemRequest {
	out := make([]domain.ItemRequest, 0, len(items))
	for _, dto := range items {
		out = append(out, dto.toDomain())
	}
	return out
}

func (dto *AddressDTO) toDomain() *domain.Address {
	if dto == nil {
		return nil
	}
	return &domain.Address{
		Line1:      dto.Line1,
		Line2:      dto.Line2,
		City:       dto.City,
		State:      dto.State,
		PostalCode: dto.PostalCode,
		Country:    strings.ToUpper(dto.Country),
	}
}

func (dto *CreateCheckoutRequestDTO) toDomain() (*domain.CreateCheckoutRequest, error) {
	if err := check(dto); err != nil {
		return nil, err
	}
	return &domain.CreateCheckoutRequest{
		Items:           itemsToDomain(dto.Items),
		ShippingAddress: dto.ShippingAddress.toDomain(),
		ShippingOption:  domain.ShippingOption(deref(dto.ShippingOption)),
		Email:           deref(dto.Email),
	}, nil
}

func (dto *UpdateCheckoutRequestDTO) toDomain() (*domain.UpdateCheckoutRequest, error) {
	if err := check(dto); err != nil {
		return nil, err
	}
	req := &domain.UpdateCheckoutRequest{
		SessionID:       dto.SessionID,
		ShippingAddress: dto.ShippingAddress.toDomain(),
		ShippingOption:  domain.ShippingOption(deref(dto.ShippingOption)),
	}
	if dto.Items != nil {
		req.Items = itemsToDomain(dto.Items)
	}
	return req, nil
}

func (dto *CompleteCheckoutRequestDTO) toDomain() (*domain.CompleteCheckoutRequest, error) {
	if err := check(dto); err != nil {
		return nil, err
	}
	return &domain.CompleteCheckoutRequest{
		SessionID:    dto.SessionID,
		PaymentToken: dto.SharedPaymentToken.Token,
		Email:        dto.Email,
	}, nil
}

func (dto *CancelCheckoutRequestDTO) toDomain() (*domain.CancelCheckoutRequest, error) {
	if err := check(dto); err != nil {
		return nil, err
	}
	return &domain.CancelCheckoutRequest{SessionID: dto.SessionID, Reason: deref(dto.Reason)}, nil
}
