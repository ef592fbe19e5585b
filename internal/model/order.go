package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// --- Order Structures (matching the upstream JSON) ---

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusConfirmed  OrderStatus = "Confirmed"
	StatusInProgress OrderStatus = "InProgress"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

// IsConfirmed reports whether the status is "Confirmed", case-insensitively.
// The upstream API is not consistent about casing.
func (s OrderStatus) IsConfirmed() bool {
	return strings.EqualFold(string(s), string(StatusConfirmed))
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "DineIn"
	OrderTypeTakeAway OrderType = "TakeAway"
	OrderTypeDelivery OrderType = "Delivery"
)

// KitchenTypeFront tags items prepared at the front-of-house station, which
// has no printer of its own. Orders containing such items get an extra
// kitchen-style rendering on the cashier printer.
const KitchenTypeFront = "FrontKitchen"

type Order struct {
	ID            string           `json:"id"`
	Number        string           `json:"orderNumber"`
	Status        OrderStatus      `json:"status"`
	Items         []OrderItem      `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Tax           decimal.Decimal  `json:"tax"`
	Discount      decimal.Decimal  `json:"discount"`
	DeliveryFee   decimal.Decimal  `json:"deliveryFee"`
	Tip           decimal.Decimal  `json:"tip"`
	Total         decimal.Decimal  `json:"total"`
	TableNumber   string           `json:"tableNumber,omitempty"`
	Type          OrderType        `json:"orderType"`
	CreatedAt     time.Time        `json:"createdAt"`
	OrderDate     time.Time        `json:"orderDate"`
	CustomerName  string           `json:"customerName,omitempty"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	Payments      []Payment        `json:"payments,omitempty"`
	Address       *DeliveryAddress `json:"deliveryAddress,omitempty"`
}

type OrderItem struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"productName"`
	Variation   string          `json:"variationName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	Note        string          `json:"specialInstructions,omitempty"`
	KitchenType string          `json:"kitchenType,omitempty"`
}

type Payment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type DeliveryAddress struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	PostCode string `json:"postCode,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// DedupKey is the identity used for duplicate suppression: the stable
// server-assigned id when present, otherwise the human-facing order number.
func (o *Order) DedupKey() string {
	if o.ID != "" {
		return o.ID
	}
	return o.Number
}

// NumericID extracts the numeric order id from the order number, which
// arrives as "{seq}/{year}" (e.g. "100/2024"). Returns 0 when the number
// does not carry one.
func (o *Order) NumericID() int {
	seq, _, _ := strings.Cut(o.Number, "/")
	n, err := strconv.Atoi(strings.TrimSpace(seq))
	if err != nil {
		return 0
	}
	return n
}

// HasFrontKitchenItems reports whether any line item is tagged for the
// front-of-house station.
func (o *Order) HasFrontKitchenItems() bool {
	for _, it := range o.Items {
		if strings.EqualFold(it.KitchenType, KitchenTypeFront) {
			return true
		}
	}
	return false
}

// TotalsConsistent checks total = subtotal + tax + deliveryFee + tip - discount.
// The model does not enforce this; it is verified before formatting so a
// mismatching order still prints but gets flagged in the log.
func (o *Order) TotalsConsistent() bool {
	sum := o.Subtotal.Add(o.Tax).Add(o.DeliveryFee).Add(o.Tip).Sub(o.Discount)
	return sum.Equal(o.Total)
}

// --- Wire envelopes ---

// EventEnvelope is the wrapped shape pushed on the event stream. The bare
// Order shape is the other possibility; see services.ParseCandidate.
type EventEnvelope struct {
	Event string `json:"event"`
	Order *Order `json:"order"`
}

// FeedPayload is the polling endpoint's response envelope.
type FeedPayload struct {
	Data struct {
		Items []Order `json:"items"`
	} `json:"data"`
}
