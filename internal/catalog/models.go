package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Visibility string

const (
	VisibilityVisible Visibility = "VISIBLE"
	VisibilityHidden  Visibility = "HIDDEN"
)

func (v Visibility) Valid() bool {
	return v == VisibilityVisible || v == VisibilityHidden
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Product struct {
	ID             string           `json:"id"`
	SKU            string           `json:"sku"`
	Title          string           `json:"title"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	OldPrice       *decimal.Decimal `json:"oldPrice,omitempty"`
	Currency       string           `json:"currency"`
	Stock          int              `json:"stock"`
	IsActive       bool             `json:"isActive"`
	IsInStock      bool             `json:"isInStock"`
	Visibility     Visibility       `json:"visibility"`
	CategoryID     string           `json:"categoryId"`
	Material       string           `json:"material,omitempty"`
	Size           string           `json:"size,omitempty"`
	Dimensions     string           `json:"dimensions,omitempty"`
	Weight         string           `json:"weight,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	Images         []string         `json:"images,omitempty"`
	SEOTitle       string           `json:"seoTitle,omitempty"`
	SEODescription string           `json:"seoDescription,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Available reports whether the product can be sold at all, ignoring quantity.
func (p Product) Available() bool {
	return p.IsActive && p.IsInStock
}

// Variant is one color/size combination with its own price, stock and SKU.
type Variant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Color     string          `json:"color,omitempty"`
	Size      string          `json:"size,omitempty"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"isActive"`
}

// Filter selects products for listing and export. Zero values mean "any".
type Filter struct {
	IDs        []string
	CategoryID string
	Active     *bool
	Visibility Visibility
	InStock    *bool
	From       *time.Time
	To         *time.Time
}
