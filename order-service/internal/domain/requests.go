package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

// MaxItemQuantity bounds a single cart line, including merged additions.
const MaxItemQuantity = 10000

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (r CartItemRequest) Validate() error {
	verr := &ValidationError{}
	if r.ProductID == uuid.Nil {
		verr.add("product_id", "product id is required")
	}
	if r.Quantity < 1 {
		verr.add("quantity", "quantity must be at least 1")
	} else if r.Quantity > MaxItemQuantity {
		verr.add("quantity", fmt.Sprintf("quantity must not exceed %d", MaxItemQuantity))
	}
	return verr.orNil()
}

type CreateOrderRequest struct {
	ShippingAddress *ShippingAddressRequest `json:"shipping_address"`
	Payment         *PaymentRequest         `json:"payment"`
	Notes           string                  `json:"notes"`
}

type ShippingAddressRequest struct {
	RecipientName string `json:"recipient_name"`
	StreetAddress string `json:"street_address"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phone_number"`
}

// PaymentRequest carries the method plus optional instrument details; the
// simulator only looks at the method.
type PaymentRequest struct {
	PaymentMethod  types.PaymentMethod `json:"payment_method"`
	CardNumber     string              `json:"card_number,omitempty"`
	CardHolderName string              `json:"card_holder_name,omitempty"`
	ExpirationDate string              `json:"expiration_date,omitempty"`
	CVV            string              `json:"cvv,omitempty"`
	PaypalEmail    string              `json:"paypal_email,omitempty"`
}

func (r CreateOrderRequest) Validate() error {
	verr := &ValidationError{}

	if r.ShippingAddress == nil {
		verr.add("shipping_address", "shipping address is required")
	} else {
		a := r.ShippingAddress
		requiredMax(verr, "shipping_address.recipient_name", a.RecipientName, 100)
		requiredMax(verr, "shipping_address.street_address", a.StreetAddress, 200)
		optionalMax(verr, "shipping_address.address_line2", a.AddressLine2, 200)
		requiredMax(verr, "shipping_address.city", a.City, 100)
		requiredMax(verr, "shipping_address.state", a.State, 100)
		requiredMax(verr, "shipping_address.postal_code", a.PostalCode, 20)
		requiredMax(verr, "shipping_address.country", a.Country, 100)
		optionalMax(verr, "shipping_address.phone_number", a.PhoneNumber, 20)
	}

	if r.Payment == nil {
		verr.add("payment", "payment information is required")
	} else if r.Payment.PaymentMethod == "" {
		verr.add("payment.payment_method", "payment method is required")
	} else if !r.Payment.PaymentMethod.IsValid() {
		verr.add("payment.payment_method", "unknown payment method")
	}

	return verr.orNil()
}

func (r CreateOrderRequest) ToShippingAddress() types.ShippingAddress {
	a := r.ShippingAddress
	return types.ShippingAddress{
		RecipientName: strings.TrimSpace(a.RecipientName),
		StreetAddress: strings.TrimSpace(a.StreetAddress),
		AddressLine2:  strings.TrimSpace(a.AddressLine2),
		City:          strings.TrimSpace(a.City),
		State:         strings.TrimSpace(a.State),
		PostalCode:    strings.TrimSpace(a.PostalCode),
		Country:       strings.TrimSpace(a.Country),
		PhoneNumber:   strings.TrimSpace(a.PhoneNumber),
	}
}

type OrderStatusUpdateRequest struct {
	Status         types.OrderStatus `json:"status"`
	TrackingNumber *string           `json:"tracking_number"`
	Notes          *string           `json:"notes"`
}

func (r OrderStatusUpdateRequest) Validate() error {
	verr := &ValidationError{}
	if r.Status == "" {
		verr.add("status", "order status is required")
	} else if !r.Status.IsValid() {
		verr.add("status", "unknown order status")
	}
	if r.TrackingNumber != nil {
		optionalMax(verr, "tracking_number", *r.TrackingNumber, 100)
	}
	return verr.orNil()
}

type PaymentStatusUpdateRequest struct {
	Status types.PaymentStatus `json:"status"`
}

func (r PaymentStatusUpdateRequest) Validate() error {
	verr := &ValidationError{}
	if !r.Status.IsValid() {
		verr.add("status", "unknown payment status")
	}
	return verr.orNil()
}

func requiredMax(verr *ValidationError, field, value string, limit int) {
	if strings.TrimSpace(value) == "" {
		verr.add(field, "is required")
		return
	}
	optionalMax(verr, field, value, limit)
}

func optionalMax(verr *ValidationError, field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		verr.add(field, fmt.Sprintf("must not exceed %d characters", limit))
	}
}
