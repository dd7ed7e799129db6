package order

import (
	"strings"
	"time"
)

// Address holds one side (billing or shipping) of an order's address data.
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	Postcode  string
	Country   string
	Phone     string
	Email     string
}

// FullName returns the formatted "First Last" name, trimmed.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Item is a single purchased line item.
type Item struct {
	Name     string
	SKU      string
	Quantity int
	Total    float64
	TaxClass string
}

// ShippingLine is a shipping charge attached to the order.
type ShippingLine struct {
	Name     string
	Total    float64
	TaxClass string
}

// Order is the aggregate read by the sync pipeline. It is owned by the shop
// database; this service never writes back to it except through notes and
// the reference metadata tables.
type Order struct {
	ID                 string
	Number             string
	CustomerID         int64
	Status             string
	Currency           string
	CreatedAt          time.Time
	PaidAt             *time.Time
	PaymentMethod      string
	PaymentMethodTitle string
	CustomerNote       string
	// BankReference is the banklink payment reference number, when the shop
	// collected one at checkout. It maps to the invoice CalcFinRef field.
	BankReference string

	Billing  Address
	Shipping Address

	Items         []Item
	ShippingLines []ShippingLine
}

// IsPaid reports whether a payment date has been recorded for the order.
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// Line is the invoice-facing view of an order line: either a purchased item
// or a shipping charge.
type Line struct {
	Name     string
	SKU      string
	Quantity int
	Total    float64
	TaxClass string
	Shipping bool
}

// InvoiceLines returns the order's items followed by its shipping lines, in
// stored order. Invoice rows are built from this slice one-to-one, so the
// ordering here is the row ordering on the wire.
func (o *Order) InvoiceLines() []Line {
	lines := make([]Line, 0, len(o.Items)+len(o.ShippingLines))
	for _, it := range o.Items {
		lines = append(lines, Line{
			Name:     it.Name,
			SKU:      it.SKU,
			Quantity: it.Quantity,
			Total:    it.Total,
			TaxClass: it.TaxClass,
		})
	}
	for _, sl := range o.ShippingLines {
		lines = append(lines, Line{
			Name:     sl.Name,
			Quantity: 1,
			Total:    sl.Total,
			TaxClass: sl.TaxClass,
			Shipping: true,
		})
	}
	return lines
}
