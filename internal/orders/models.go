package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryType string

const (
	DeliveryPickup    DeliveryType = "PICKUP"
	DeliveryCourier   DeliveryType = "COURIER"
	DeliveryTransport DeliveryType = "TRANSPORT"
)

func (d DeliveryType) Valid() bool {
	switch d {
	case DeliveryPickup, DeliveryCourier, DeliveryTransport:
		return true
	}
	return false
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	City       string `json:"city"`
	Street     string `json:"street"`
	Building   string `json:"building"`
	Apartment  string `json:"apartment,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Order holds a contact/address snapshot taken at checkout; money fields never change afterwards.
type Order struct {
	ID           string          `json:"id"`
	OrderNumber  string          `json:"orderNumber"`
	UserID       string          `json:"userId"`
	Status       Status          `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Delivery     decimal.Decimal `json:"delivery"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	DeliveryType DeliveryType    `json:"deliveryType"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Company      string          `json:"company,omitempty"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	AddressID    *string         `json:"addressId,omitempty"`
	PromoCode    string          `json:"promoCode,omitempty"`
	TrackNumber  string          `json:"trackNumber,omitempty"`
	Items        []Item          `json:"items"`
	Address      *Address        `json:"address,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Item prices are snapshots taken when the order was placed.
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Product   *ProductSummary `json:"product,omitempty"`
}

type ProductSummary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	SKU    string   `json:"sku"`
	Images []string `json:"images,omitempty"`
}

// Log is an append-only audit row.
type Log struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	Comment   string    `json:"comment"`
	CreatedBy *string   `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceRequest struct {
	Items        []ItemInput  `json:"items"`
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Company      string       `json:"company,omitempty"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	DeliveryType DeliveryType `json:"deliveryType"`
	AddressID    string       `json:"addressId,omitempty"`
	PromoCode    string       `json:"promoCode,omitempty"`
}

type ListFilter struct {
	Status Status
	From   *time.Time
	To     *time.Time
	UserID string
	Search string
	Page   int
	Limit  int
}

type Page struct {
	Orders []Order `json:"data"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
	Total  int     `json:"total"`
	Pages  int     `json:"pages"`
}

type Patch struct {
	Status      *Status `json:"status,omitempty"`
	TrackNumber *string `json:"trackNumber,omitempty"`
	Comment     string  `json:"comment,omitempty"`
}
