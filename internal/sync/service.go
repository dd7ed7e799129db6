// Package sync orchestrates the order-to-invoice pipeline: resolve the
// customer, build the invoice payload, submit it, register payment, and
// record the outcome on the order.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/invoice"
	"github.com/konekt/standardbooks-sync/internal/order"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
)

const notePrefix = "Standard Books: "

// Client is the slice of the Standard Books API the pipeline drives.
type Client interface {
	UpsertCustomer(ctx context.Context, payload standardbooks.Payload) (*standardbooks.Customer, error)
	CreateInvoice(ctx context.Context, payload standardbooks.Payload, existingID string) (*standardbooks.Invoice, []string, error)
	RegisterPayment(ctx context.Context, payload standardbooks.Payload) error
}

// Store is the persistence the pipeline needs: the order aggregate plus the
// sync-owned reference metadata and notes.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	CustomerCode(ctx context.Context, customerID int64) (string, error)
	SetCustomerCode(ctx context.Context, customerID int64, code string) error
	InvoiceRef(ctx context.Context, orderID string) (invoiceID, customerCode string, err error)
	SetInvoiceRef(ctx context.Context, orderID, invoiceID, customerCode string) error
	AddOrderNote(ctx context.Context, orderID, note string, private bool) error
}

// Publisher emits pipeline events for downstream consumers.
type Publisher interface {
	PublishInvoiceSynced(ctx context.Context, orderID, invoiceID string) error
}

// TaxResolver maps local tax classes to external VAT codes.
type TaxResolver interface {
	MatchingTaxCode(taxClass string) string
}

// Service runs the sync pipeline for one configured Standard Books install.
type Service struct {
	client    Client
	store     Store
	publisher Publisher
	taxes     TaxResolver
	settings  config.Settings
	log       *zap.SugaredLogger
}

func NewService(client Client, store Store, publisher Publisher, taxes TaxResolver, settings config.Settings, log *zap.SugaredLogger) *Service {
	return &Service{
		client:    client,
		store:     store,
		publisher: publisher,
		taxes:     taxes,
		settings:  settings,
		log:       log,
	}
}

// HandleStatusChange reacts to an order status transition. Only the
// configured trigger status starts a sync; everything else is ignored.
func (s *Service) HandleStatusChange(ctx context.Context, orderID, newStatus string) error {
	if !s.settings.Invoice.SyncAllowed {
		return nil
	}
	if newStatus != s.settings.Invoice.SyncStatus {
		return nil
	}
	// Status-driven syncs always move stock; only the manual
	// submit-without-stock path opts out.
	return s.SubmitOrder(ctx, orderID, true)
}

// SubmitOrder runs the full pipeline for one order. updateStock controls the
// invoice's stock update flag, letting a manual resubmission skip a second
// stock movement.
func (s *Service) SubmitOrder(ctx context.Context, orderID string, updateStock bool) error {
	correlationID := uuid.NewString()
	log := s.log.With("order_id", orderID, "correlation_id", correlationID)

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order for sync: %w", err)
	}

	customerCode, err := s.resolveCustomer(ctx, o, log)
	if err != nil {
		s.failOrder(ctx, o, err, log)
		return err
	}

	existingID, _, err := s.store.InvoiceRef(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load invoice ref: %w", err)
	}

	payload := invoice.InvoicePayload(o, customerCode, updateStock, s.settings, s.taxes.MatchingTaxCode)
	inv, messages, err := s.client.CreateInvoice(ctx, payload, existingID)
	if err != nil {
		s.failOrder(ctx, o, err, log)
		return fmt.Errorf("submit invoice for order %s: %w", orderID, err)
	}

	action := "Created"
	if existingID != "" {
		action = "Updated"
	} else if err := s.store.SetInvoiceRef(ctx, orderID, inv.SerNr, customerCode); err != nil {
		// The invoice exists remotely now; losing the ref means the next
		// submission would create a duplicate, so this is a hard failure.
		return fmt.Errorf("store invoice ref for order %s: %w", orderID, err)
	}

	note := fmt.Sprintf("%s invoice with ID %s. Customer ID is %s.", action, inv.SerNr, inv.CustCode)
	if err := s.store.AddOrderNote(ctx, orderID, notePrefix+note, false); err != nil {
		log.Warnw("failed to add order note", "error", err)
	}

	if s.settings.Invoice.SaveAPIMessagesToNotes {
		for _, msg := range messages {
			if err := s.store.AddOrderNote(ctx, orderID, notePrefix+msg, true); err != nil {
				log.Warnw("failed to add message note", "error", err)
			}
		}
	}

	s.registerPayment(ctx, o, inv.SerNr, log)

	if o.CustomerID != 0 && o.Billing.Company != "" {
		if err := s.store.SetCustomerCode(ctx, o.CustomerID, customerCode); err != nil {
			log.Warnw("failed to store customer code", "customer_id", o.CustomerID, "error", err)
		}
	}

	if err := s.publisher.PublishInvoiceSynced(ctx, orderID, inv.SerNr); err != nil {
		log.Warnw("failed to publish invoice synced event", "error", err)
	}

	log.Infow("invoice synced", "invoice_id", inv.SerNr, "customer_code", inv.CustCode, "updated", existingID != "")
	return nil
}

// resolveCustomer decides which external customer the invoice belongs to.
// Orders without a billing company are booked on the shared private-person
// account; company orders reuse the stored code when one exists and only
// hit the API to create the customer on first contact.
func (s *Service) resolveCustomer(ctx context.Context, o *order.Order, log *zap.SugaredLogger) (string, error) {
	if o.Billing.Company == "" {
		return s.settings.Invoice.PrivatePersonCode, nil
	}

	if o.CustomerID != 0 {
		stored, err := s.store.CustomerCode(ctx, o.CustomerID)
		if err != nil {
			return "", fmt.Errorf("load customer code: %w", err)
		}
		if stored != "" {
			return stored, nil
		}
	}

	customer, err := s.client.UpsertCustomer(ctx, invoice.CustomerPayload(o, ""))
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	log.Debugw("customer created", "customer_code", customer.Code)
	return customer.Code, nil
}

// registerPayment records the order's payment against the invoice. Payment
// failures never fail the sync: the invoice went through, and the payment
// can be entered by hand, so the error is logged and noted instead.
func (s *Service) registerPayment(ctx context.Context, o *order.Order, invoiceSerial string, log *zap.SugaredLogger) {
	if !s.settings.Invoice.CreatePayments || !o.IsPaid() {
		return
	}

	payload := invoice.PaymentPayload(o, invoiceSerial, s.settings)
	if err := s.client.RegisterPayment(ctx, payload); err != nil {
		log.Errorw("failed to register payment", "invoice_id", invoiceSerial, "error", err)
		note := fmt.Sprintf("Payment registration failed for invoice %s.", invoiceSerial)
		if noteErr := s.store.AddOrderNote(ctx, o.ID, notePrefix+note, true); noteErr != nil {
			log.Warnw("failed to add payment failure note", "error", noteErr)
		}
		return
	}
	log.Infow("payment registered", "invoice_id", invoiceSerial)
}

// failOrder records a sync failure on the order. The API parameters that
// were rejected go to the log, not the note; the note just flags the order
// for the merchant.
func (s *Service) failOrder(ctx context.Context, o *order.Order, cause error, log *zap.SugaredLogger) {
	log.Errorw("invoice sync failed",
		"error", cause,
		"order_number", o.Number,
		"customer_id", o.CustomerID,
		"payment_method", o.PaymentMethod,
		"line_count", len(o.InvoiceLines()),
		"created_at", o.CreatedAt.Format(time.RFC3339),
	)
	if err := s.store.AddOrderNote(ctx, o.ID, notePrefix+"Invoice generation failed.", false); err != nil {
		log.Warnw("failed to add failure note", "error", err)
	}
}
