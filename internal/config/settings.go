package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings is the merchant-facing sync configuration: what the shop admin
// would historically have filled into an integration settings screen. It is
// loaded from a YAML file so the tax mapping table and rate list can be
// expressed naturally.
type Settings struct {
	Invoice InvoiceSettings `mapstructure:"invoice"`
	Stock   StockSettings   `mapstructure:"stock"`
	Product ProductSettings `mapstructure:"product"`
	Taxes   TaxSettings     `mapstructure:"taxes"`
}

type InvoiceSettings struct {
	SyncAllowed       bool   `mapstructure:"sync_allowed"`
	SyncStatus        string `mapstructure:"sync_status"`
	OrderNumberPrefix string `mapstructure:"order_number_prefix"`
	ItemType          string `mapstructure:"item_type"`
	ShippingSKU       string `mapstructure:"shipping_sku"`
	PrivatePersonCode string `mapstructure:"private_person_code"`
	PaymentDeal       int    `mapstructure:"payment_deal"`
	// Confirmed auto-confirms every invoice sent from the shop.
	Confirmed bool `mapstructure:"confirmed"`
	// BacsUnconfirmed leaves direct-bank-transfer invoices unconfirmed even
	// when Confirmed is set, since the money has not arrived yet.
	BacsUnconfirmed        bool   `mapstructure:"bacs_unconfirmed"`
	// CreatePayments registers an IPVc payment for paid orders right after
	// the invoice goes through.
	CreatePayments         bool   `mapstructure:"create_payments"`
	PaymentsCode           string `mapstructure:"payments_code"`
	SaveAPIMessagesToNotes bool   `mapstructure:"save_api_messages_to_notes"`
	LangCode               string `mapstructure:"lang_code"`
	PriceDecimals          int    `mapstructure:"price_decimals"`
}

type StockSettings struct {
	SyncAllowed        bool   `mapstructure:"sync_allowed"`
	PrimaryWarehouse   string `mapstructure:"primary_warehouse"`
	RefreshRateMinutes int    `mapstructure:"refresh_rate_minutes"`
}

type ProductSettings struct {
	SyncAllowed     bool `mapstructure:"sync_allowed"`
	RefreshRateDays int  `mapstructure:"refresh_rate_days"`
}

// TaxSettings pairs the shop's tax rate table with the mapping from
// external VAT codes to local rate ids. The mapping is filled in by the
// admin against the table fetched from the external system.
type TaxSettings struct {
	Rates   []TaxRate      `mapstructure:"rates"`
	Mapping map[string]int `mapstructure:"mapping"`
}

type TaxRate struct {
	ID    int     `mapstructure:"id"`
	Label string  `mapstructure:"label"`
	Rate  float64 `mapstructure:"rate"`
	// Slug is the tax class products reference; an empty slug is the
	// standard class.
	Slug string `mapstructure:"slug"`
}

// LoadSettings reads the settings file at path.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("invoice.sync_status", "processing")
	v.SetDefault("invoice.item_type", "1")
	v.SetDefault("invoice.private_person_code", "1000")
	v.SetDefault("invoice.payment_deal", 7)
	v.SetDefault("invoice.create_payments", true)
	v.SetDefault("invoice.payments_code", "P")
	v.SetDefault("invoice.lang_code", "en_US")
	v.SetDefault("invoice.price_decimals", 2)
	v.SetDefault("stock.refresh_rate_minutes", 15)
	v.SetDefault("product.refresh_rate_days", 30)

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	if s.Invoice.SyncStatus == "" {
		return fmt.Errorf("invoice.sync_status is required")
	}
	if s.Invoice.PaymentDeal < 0 {
		return fmt.Errorf("invoice.payment_deal must not be negative")
	}
	// The refresh rates feed ticker intervals and cache TTLs; zero would
	// panic the worker.
	if s.Stock.RefreshRateMinutes <= 0 {
		return fmt.Errorf("stock.refresh_rate_minutes must be positive")
	}
	if s.Product.RefreshRateDays <= 0 {
		return fmt.Errorf("product.refresh_rate_days must be positive")
	}
	return nil
}
