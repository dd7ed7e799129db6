// Package invoice maps shop orders into the payload shapes the Standard
// Books API accepts. Everything here is a pure function of the order, the
// resolved customer code, and the sync settings; the same inputs always
// produce the same payload.
package invoice

import (
	"fmt"
	"strconv"

	"github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/order"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
)

const (
	dateLayout = "2006-01-02"

	// bacsPaymentMethod is the direct-bank-transfer gateway id; orders paid
	// this way can be left unconfirmed until the transfer clears.
	bacsPaymentMethod = "bacs"

	// shippingItemType is the external "service" item type used for
	// shipping rows regardless of the configured default.
	shippingItemType = "3"
)

// TaxCodeFunc resolves a local tax class into an external VAT code. An
// empty result means unmapped, which is not an error: the row simply goes
// out with an empty code.
type TaxCodeFunc func(taxClass string) string

// CustomerPayload builds the CUVc upsert payload from the order's billing
// data. customerCode is empty on first contact; the external system then
// assigns one.
func CustomerPayload(o *order.Order, customerCode string) standardbooks.Payload {
	return standardbooks.Payload{Fields: map[string]string{
		"Code":        customerCode,
		"Name":        o.Billing.Company,
		"Person":      o.Billing.FullName(),
		"InvAddr0":    o.Billing.City,
		"InvAddr1":    o.Billing.Address1,
		"InvAddr2":    o.Billing.Address2,
		"Phone":       o.Billing.Phone,
		"CountryCode": o.Billing.Country,
		"Email":       o.Billing.Email,
	}}
}

// InvoicePayload builds the IVVc payload: header fields plus one row per
// order line and shipping line, in order iteration order.
func InvoicePayload(o *order.Order, customerCode string, updateStock bool, s config.Settings, taxCode TaxCodeFunc) standardbooks.Payload {
	fields := map[string]string{
		"RefStr":       s.Invoice.OrderNumberPrefix + o.Number,
		"InvDate":      o.CreatedAt.Format(dateLayout),
		"Addr0":        o.Billing.FullName(),
		"Addr1":        o.Billing.Address1,
		"Addr2":        o.Billing.Country,
		"InvComment":   o.CustomerNote,
		"InvType":      "1",
		"InclVAT":      "0",
		"Sum0":         strconv.Itoa(s.Invoice.PriceDecimals + 2),
		"CurncyCode":   o.Currency,
		"LangCode":     s.Invoice.LangCode,
		"UpdStockFlag": boolFlag(updateStock),
		"ShipAddr0":    o.Shipping.FullName(),
		"ShipAddr1":    o.Shipping.Address1,
		"ShipAddr2":    o.Shipping.Country,
		"Phone":        o.Billing.Phone,
		"CustCode":     customerCode,
		"PayDeal":      strconv.Itoa(s.Invoice.PaymentDeal),
		"OKFlag":       okFlag(o, s),
	}

	if o.BankReference != "" {
		fields["CalcFinRef"] = o.BankReference
	}
	if o.IsPaid() {
		fields["PayDate"] = o.PaidAt.Format(dateLayout)
	}
	if s.Stock.PrimaryWarehouse != "" {
		fields["Location"] = s.Stock.PrimaryWarehouse
	}

	return standardbooks.Payload{
		Fields: fields,
		Rows:   invoiceRows(o, s, taxCode),
	}
}

// PaymentPayload builds the IPVc payload registering the order's payment
// against an already created invoice.
func PaymentPayload(o *order.Order, invoiceSerial string, s config.Settings) standardbooks.Payload {
	transDate := ""
	if o.IsPaid() {
		transDate = o.PaidAt.Format(dateLayout)
	}
	return standardbooks.Payload{
		Fields: map[string]string{
			"PayMode":   s.Invoice.PaymentsCode,
			"TransDate": transDate,
			"Comment":   o.PaymentMethodTitle,
			"OKFlag":    "1",
		},
		Rows: []standardbooks.Row{
			{"InvoiceNr": invoiceSerial},
		},
	}
}

func invoiceRows(o *order.Order, s config.Settings, taxCode TaxCodeFunc) []standardbooks.Row {
	lines := o.InvoiceLines()
	rows := make([]standardbooks.Row, 0, len(lines))

	for _, line := range lines {
		row := standardbooks.Row{
			"stp":      "1",
			"Spec":     line.Name,
			"Quant":    strconv.Itoa(line.Quantity),
			"Price":    formatDecimal(unitPrice(line), s.Invoice.PriceDecimals),
			"Sum":      formatDecimal(line.Total, s.Invoice.PriceDecimals),
			"ItemType": s.Invoice.ItemType,
		}

		if line.Shipping {
			row["ItemType"] = shippingItemType
			if s.Invoice.ShippingSKU != "" {
				row["ArtCode"] = s.Invoice.ShippingSKU
			}
		} else {
			row["ArtCode"] = line.SKU
		}

		if line.TaxClass != "" {
			row["VATCode"] = taxCode(line.TaxClass)
		}

		rows = append(rows, row)
	}

	return rows
}

// unitPrice derives the per-unit price from the line total rather than any
// stored unit price, so discounts applied to the line carry through.
func unitPrice(line order.Line) float64 {
	if line.Quantity <= 0 {
		return line.Total
	}
	return line.Total / float64(line.Quantity)
}

// okFlag decides whether the invoice goes out confirmed. Bank-transfer
// orders stay unconfirmed when the shop opts in, since payment has not
// cleared at submission time; that option wins over global auto-confirm.
func okFlag(o *order.Order, s config.Settings) string {
	if o.PaymentMethod == bacsPaymentMethod && s.Invoice.BacsUnconfirmed {
		return "0"
	}
	if s.Invoice.Confirmed {
		return "1"
	}
	return "0"
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatDecimal(v float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, v)
}
