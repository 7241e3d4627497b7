package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateProduct  = errors.New("product already exists")
)

type ProductAggregate struct {
	*types.Product
}

func NewProductAggregate(request CreateProductRequest) *ProductAggregate {
	active := true
	if request.Active != nil {
		active = *request.Active
	}

	now := time.Now().UTC()
	return &ProductAggregate{
		Product: &types.Product{
			ID:          uuid.New(),
			Name:        strings.TrimSpace(request.Name),
			Description: strings.TrimSpace(request.Description),
			Price:       request.Price,
			ImageURL:    strings.TrimSpace(request.ImageURL),
			Stock:       request.Stock,
			Active:      active,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func (p *ProductAggregate) CanReduce(quantity int) bool {
	return p.Stock >= quantity
}

func (p *ProductAggregate) ReduceStock(quantity int) error {
	if !p.CanReduce(quantity) {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now().UTC()
	return nil
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock"`
	Active      *bool           `json:"active"`
}

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (r CreateProductRequest) Validate() error {
	fields := make(map[string]string)

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		fields["name"] = "is required"
	case len(name) > 255:
		fields["name"] = "must not exceed 255 characters"
	}
	if !r.Price.IsPositive() {
		fields["price"] = "must be greater than zero"
	}
	if r.Stock < 0 {
		fields["stock"] = "must not be negative"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
