package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/konekt/standardbooks-sync/internal/order"
)

// Repository wraps the shop database. Orders and products are read from the
// shop's own tables; the sync-owned tables (customer_refs, invoice_refs,
// order_notes) hold the metadata this service attaches to them.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// GetOrder loads one order aggregate, items and shipping lines included.
func (r *Repository) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var (
		o      order.Order
		paidAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, number, customer_id, status, currency, created_at, paid_at,
		       payment_method, payment_method_title, customer_note, bank_reference,
		       billing_first_name, billing_last_name, billing_company,
		       billing_address_1, billing_address_2, billing_city, billing_postcode,
		       billing_country, billing_phone, billing_email,
		       shipping_first_name, shipping_last_name, shipping_company,
		       shipping_address_1, shipping_address_2, shipping_city,
		       shipping_postcode, shipping_country
		FROM orders
		WHERE id = $1`, orderID).Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.Status, &o.Currency, &o.CreatedAt, &paidAt,
		&o.PaymentMethod, &o.PaymentMethodTitle, &o.CustomerNote, &o.BankReference,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.Company,
		&o.Billing.Address1, &o.Billing.Address2, &o.Billing.City, &o.Billing.Postcode,
		&o.Billing.Country, &o.Billing.Phone, &o.Billing.Email,
		&o.Shipping.FirstName, &o.Shipping.LastName, &o.Shipping.Company,
		&o.Shipping.Address1, &o.Shipping.Address2, &o.Shipping.City,
		&o.Shipping.Postcode, &o.Shipping.Country,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT kind, name, sku, quantity, total, tax_class
		FROM order_items
		WHERE order_id = $1
		ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items for %s: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, name, sku, taxClass string
			quantity                  int
			total                     float64
		)
		if err := rows.Scan(&kind, &name, &sku, &quantity, &total, &taxClass); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if kind == "shipping" {
			o.ShippingLines = append(o.ShippingLines, order.ShippingLine{
				Name:     name,
				Total:    total,
				TaxClass: taxClass,
			})
		} else {
			o.Items = append(o.Items, order.Item{
				Name:     name,
				SKU:      sku,
				Quantity: quantity,
				Total:    total,
				TaxClass: taxClass,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &o, nil
}

// CustomerCode returns the stored external customer code for a shop
// customer, or an empty string when none has been assigned yet.
func (r *Repository) CustomerCode(ctx context.Context, customerID int64) (string, error) {
	if r.DB == nil {
		return "", fmt.Errorf("database not initialized")
	}
	var code string
	err := r.DB.QueryRowContext(ctx,
		`SELECT external_code FROM customer_refs WHERE customer_id = $1`, customerID).Scan(&code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load customer code for %d: %w", customerID, err)
	}
	return code, nil
}

// SetCustomerCode persists the external customer code for a shop customer.
func (r *Repository) SetCustomerCode(ctx context.Context, customerID int64, code string) error {
	if r.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO customer_refs (customer_id, external_code)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET
			external_code = EXCLUDED.external_code,
			updated_at = CURRENT_TIMESTAMP`, customerID, code)
	if err != nil {
		return fmt.Errorf("failed to store customer code for %d: %w", customerID, err)
	}
	return nil
}

// InvoiceRef returns the invoice serial and customer code stored for an
// order, empty strings when the order has not been submitted yet.
func (r *Repository) InvoiceRef(ctx context.Context, orderID string) (invoiceID, customerCode string, err error) {
	if r.DB == nil {
		return "", "", fmt.Errorf("database not initialized")
	}
	err = r.DB.QueryRowContext(ctx,
		`SELECT invoice_id, customer_code FROM invoice_refs WHERE order_id = $1`, orderID).
		Scan(&invoiceID, &customerCode)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load invoice ref for %s: %w", orderID, err)
	}
	return invoiceID, customerCode, nil
}

// SetInvoiceRef persists the invoice serial and customer code for an order.
func (r *Repository) SetInvoiceRef(ctx context.Context, orderID, invoiceID, customerCode string) error {
	if r.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO invoice_refs (order_id, invoice_id, customer_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO UPDATE SET
			invoice_id = EXCLUDED.invoice_id,
			customer_code = EXCLUDED.customer_code,
			updated_at = CURRENT_TIMESTAMP`, orderID, invoiceID, customerCode)
	if err != nil {
		return fmt.Errorf("failed to store invoice ref for %s: %w", orderID, err)
	}
	return nil
}

// AddOrderNote appends a note to the order's timeline. Private notes are
// only shown to shop staff.
func (r *Repository) AddOrderNote(ctx context.Context, orderID, note string, private bool) error {
	if r.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO order_notes (order_id, note, private) VALUES ($1, $2, $3)`,
		orderID, note, private)
	if err != nil {
		return fmt.Errorf("failed to add note to order %s: %w", orderID, err)
	}
	return nil
}

// Product is the slice of the shop's product record the stock/article
// refresh needs.
type Product struct {
	SKU           string
	StockQuantity float64
	ManageStock   bool
	StockStatus   string
	TaxClass      string
}

// Product loads one product by SKU, nil when unknown.
func (r *Repository) Product(ctx context.Context, sku string) (*Product, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	var p Product
	err := r.DB.QueryRowContext(ctx, `
		SELECT sku, stock_quantity, manage_stock, stock_status, tax_class
		FROM products
		WHERE sku = $1`, sku).
		Scan(&p.SKU, &p.StockQuantity, &p.ManageStock, &p.StockStatus, &p.TaxClass)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", sku, err)
	}
	return &p, nil
}

// ManagedSKUs lists the SKUs of every stock-managed product, for the
// periodic refresh sweep.
func (r *Repository) ManagedSKUs(ctx context.Context) ([]string, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT sku FROM products WHERE manage_stock AND sku <> '' ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed products: %w", err)
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("failed to scan sku: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

// SetProductStock writes back a refreshed stock level.
func (r *Repository) SetProductStock(ctx context.Context, sku string, quantity float64, status string, manageStock bool) error {
	if r.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = $1, stock_status = $2, manage_stock = $3, updated_at = CURRENT_TIMESTAMP
		WHERE sku = $4`, quantity, status, manageStock, sku)
	if err != nil {
		return fmt.Errorf("failed to update stock for %s: %w", sku, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("product not found: %s", sku)
	}
	return nil
}

// SetProductTaxClass writes back a tax class imported from the article data.
func (r *Repository) SetProductTaxClass(ctx context.Context, sku, taxClass string) error {
	if r.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE products
		SET tax_class = $1, updated_at = CURRENT_TIMESTAMP
		WHERE sku = $2`, taxClass, sku)
	if err != nil {
		return fmt.Errorf("failed to update tax class for %s: %w", sku, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("product not found: %s", sku)
	}
	return nil
}
