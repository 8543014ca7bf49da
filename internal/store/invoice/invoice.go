package invoice

import (
	"context"
	"fmt"

	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"

	"github.com/jackc/pgx/v5"
)

// InvoiceStorer reads funding invoices for invoice-anchored rules.
type InvoiceStorer interface {
	GetOpenInvoices(ctx context.Context) ([]domain.Invoice, error)
	GetUnpaidInvoices(ctx context.Context) ([]domain.Invoice, error)
}

type InvoiceStore struct {
	db database.Querier
}

func NewInvoiceStore(db database.Querier) *InvoiceStore {
	return &InvoiceStore{db: db}
}

func collectInvoices(rows pgx.Rows) ([]domain.Invoice, error) {
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ProjectID, &inv.IssueDate, &inv.PaymentStatus); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return invoices, nil
}

// GetOpenInvoices returns issued invoices whose payment status is Unpaid, Pending or Overdue.
func (s *InvoiceStore) GetOpenInvoices(ctx context.Context) ([]domain.Invoice, error) {
	query := `
    SELECT id, invoice_number, project_id, issue_date, payment_status
    FROM funding_invoice
    WHERE payment_status = ANY($1::text[])
      AND issue_date IS NOT NULL
    ORDER BY issue_date, id;
    `

	rows, err := s.db.Query(ctx, query, domain.OpenPaymentStatuses)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectInvoices(rows)
}

// GetUnpaidInvoices returns issued invoices in any state other than Paid.
func (s *InvoiceStore) GetUnpaidInvoices(ctx context.Context) ([]domain.Invoice, error) {
	query := `
    SELECT id, invoice_number, project_id, issue_date, payment_status
    FROM funding_invoice
    WHERE payment_status <> 'Paid'
      AND issue_date IS NOT NULL
    ORDER BY issue_date, id;
    `

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectInvoices(rows)
}
