package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/order"
)

func testSettings() config.Settings {
	return config.Settings{
		Invoice: config.InvoiceSettings{
			SyncStatus:        "processing",
			OrderNumberPrefix: "WEB-",
			ItemType:          "1",
			ShippingSKU:       "SHIPPING",
			PrivatePersonCode: "1000",
			PaymentDeal:       7,
			Confirmed:         true,
			PaymentsCode:      "P",
			LangCode:          "en_US",
			PriceDecimals:     2,
		},
		Stock: config.StockSettings{PrimaryWarehouse: "MAIN"},
	}
}

func testOrder() *order.Order {
	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return &order.Order{
		ID:                 "ord-1",
		Number:             "1001",
		CustomerID:         7,
		Status:             "processing",
		Currency:           "EUR",
		CreatedAt:          created,
		PaymentMethod:      "stripe",
		PaymentMethodTitle: "Card payment",
		CustomerNote:       "Leave at door",
		Billing: order.Address{
			FirstName: "Mari",
			LastName:  "Tamm",
			Company:   "Acme OÜ",
			Address1:  "Pikk 1",
			City:      "Tallinn",
			Country:   "EE",
			Phone:     "+372 5551234",
			Email:     "mari@example.com",
		},
		Shipping: order.Address{
			FirstName: "Mari",
			LastName:  "Tamm",
			Address1:  "Lai 2",
			Country:   "EE",
		},
		Items: []order.Item{
			{Name: "Widget", SKU: "SKU-1", Quantity: 2, Total: 20.00, TaxClass: ""},
		},
		ShippingLines: []order.ShippingLine{
			{Name: "Courier", Total: 5.00, TaxClass: ""},
		},
	}
}

func noTaxCode(string) string { return "" }

func standardTaxCode(taxClass string) string {
	if taxClass == "" {
		return "1"
	}
	return ""
}

func TestCustomerPayload(t *testing.T) {
	p := CustomerPayload(testOrder(), "1042")

	assert.Equal(t, "1042", p.Fields["Code"])
	assert.Equal(t, "Acme OÜ", p.Fields["Name"])
	assert.Equal(t, "Mari Tamm", p.Fields["Person"])
	assert.Equal(t, "Tallinn", p.Fields["InvAddr0"])
	assert.Equal(t, "Pikk 1", p.Fields["InvAddr1"])
	assert.Equal(t, "EE", p.Fields["CountryCode"])
	assert.Equal(t, "mari@example.com", p.Fields["Email"])
}

func TestInvoicePayloadHeader(t *testing.T) {
	o := testOrder()
	p := InvoicePayload(o, "1042", true, testSettings(), noTaxCode)

	assert.Equal(t, "WEB-1001", p.Fields["RefStr"])
	assert.Equal(t, "2024-03-15", p.Fields["InvDate"])
	assert.Equal(t, "Mari Tamm", p.Fields["Addr0"])
	assert.Equal(t, "Pikk 1", p.Fields["Addr1"])
	assert.Equal(t, "EE", p.Fields["Addr2"])
	assert.Equal(t, "Leave at door", p.Fields["InvComment"])
	assert.Equal(t, "1", p.Fields["InvType"])
	assert.Equal(t, "0", p.Fields["InclVAT"])
	assert.Equal(t, "4", p.Fields["Sum0"])
	assert.Equal(t, "EUR", p.Fields["CurncyCode"])
	assert.Equal(t, "en_US", p.Fields["LangCode"])
	assert.Equal(t, "1", p.Fields["UpdStockFlag"])
	assert.Equal(t, "Lai 2", p.Fields["ShipAddr1"])
	assert.Equal(t, "1042", p.Fields["CustCode"])
	assert.Equal(t, "7", p.Fields["PayDeal"])
	assert.Equal(t, "MAIN", p.Fields["Location"])
	assert.Equal(t, "1", p.Fields["OKFlag"])

	// Unpaid order with no bank reference: neither optional field present.
	assert.NotContains(t, p.Fields, "PayDate")
	assert.NotContains(t, p.Fields, "CalcFinRef")
}

func TestInvoicePayloadPaidOrder(t *testing.T) {
	o := testOrder()
	paid := time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC)
	o.PaidAt = &paid
	o.BankReference = "1234567890"

	p := InvoicePayload(o, "1042", false, testSettings(), noTaxCode)

	assert.Equal(t, "2024-03-16", p.Fields["PayDate"])
	assert.Equal(t, "1234567890", p.Fields["CalcFinRef"])
	assert.Equal(t, "0", p.Fields["UpdStockFlag"])
}

func TestInvoiceRows(t *testing.T) {
	p := InvoicePayload(testOrder(), "1042", true, testSettings(), standardTaxCode)
	require.Len(t, p.Rows, 2)

	item := p.Rows[0]
	assert.Equal(t, "1", item["stp"])
	assert.Equal(t, "Widget", item["Spec"])
	assert.Equal(t, "2", item["Quant"])
	assert.Equal(t, "10.00", item["Price"])
	assert.Equal(t, "20.00", item["Sum"])
	assert.Equal(t, "SKU-1", item["ArtCode"])
	assert.Equal(t, "1", item["ItemType"])

	shipping := p.Rows[1]
	assert.Equal(t, "Courier", shipping["Spec"])
	assert.Equal(t, "1", shipping["Quant"])
	assert.Equal(t, "5.00", shipping["Sum"])
	assert.Equal(t, "3", shipping["ItemType"])
	assert.Equal(t, "SHIPPING", shipping["ArtCode"])
}

func TestInvoiceRowTaxCode(t *testing.T) {
	o := testOrder()
	o.Items[0].TaxClass = "reduced-rate"

	mapped := InvoicePayload(o, "1042", true, testSettings(), func(tc string) string {
		assert.Equal(t, "reduced-rate", tc)
		return "2"
	})
	assert.Equal(t, "2", mapped.Rows[0]["VATCode"])

	// Unmapped classes still set the field, empty. The standard class
	// (empty slug) never resolves through the tax code func at all.
	unmapped := InvoicePayload(o, "1042", true, testSettings(), noTaxCode)
	v, ok := unmapped.Rows[0]["VATCode"]
	assert.True(t, ok)
	assert.Empty(t, v)

	o.Items[0].TaxClass = ""
	standard := InvoicePayload(o, "1042", true, testSettings(), noTaxCode)
	assert.NotContains(t, standard.Rows[0], "VATCode")
}

func TestInvoiceRowShippingWithoutConfiguredSKU(t *testing.T) {
	s := testSettings()
	s.Invoice.ShippingSKU = ""

	p := InvoicePayload(testOrder(), "1042", true, s, noTaxCode)
	assert.NotContains(t, p.Rows[1], "ArtCode")
}

func TestUnitPriceFromLineTotal(t *testing.T) {
	o := testOrder()
	// A discounted line: 3 units for 25.00 total.
	o.Items[0].Quantity = 3
	o.Items[0].Total = 25.00

	p := InvoicePayload(o, "1042", true, testSettings(), noTaxCode)
	assert.Equal(t, "8.33", p.Rows[0]["Price"])
	assert.Equal(t, "25.00", p.Rows[0]["Sum"])
}

func TestOKFlag(t *testing.T) {
	s := testSettings()
	o := testOrder()

	p := InvoicePayload(o, "1042", true, s, noTaxCode)
	assert.Equal(t, "1", p.Fields["OKFlag"])

	s.Invoice.Confirmed = false
	p = InvoicePayload(o, "1042", true, s, noTaxCode)
	assert.Equal(t, "0", p.Fields["OKFlag"])

	// Bank transfer stays unconfirmed when the shop opts in, even with
	// auto-confirm on.
	s.Invoice.Confirmed = true
	s.Invoice.BacsUnconfirmed = true
	o.PaymentMethod = "bacs"
	p = InvoicePayload(o, "1042", true, s, noTaxCode)
	assert.Equal(t, "0", p.Fields["OKFlag"])
}

func TestPaymentPayload(t *testing.T) {
	o := testOrder()
	paid := time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC)
	o.PaidAt = &paid

	p := PaymentPayload(o, "2024001", testSettings())

	assert.Equal(t, "P", p.Fields["PayMode"])
	assert.Equal(t, "2024-03-16", p.Fields["TransDate"])
	assert.Equal(t, "Card payment", p.Fields["Comment"])
	assert.Equal(t, "1", p.Fields["OKFlag"])
	require.Len(t, p.Rows, 1)
	assert.Equal(t, "2024001", p.Rows[0]["InvoiceNr"])
}
