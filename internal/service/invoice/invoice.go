// internal/service/invoice/invoice.go
package invoice

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/domain/invoice"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/repository/postgres"
	auditsvc "billhub-service/internal/service/audit"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type InvoiceService struct {
	repo     *postgres.InvoiceRepository
	clients  *postgres.ClientRepository
	recorder *auditsvc.Recorder
	logger   *zap.Logger
}

func NewInvoiceService(repo *postgres.InvoiceRepository, clients *postgres.ClientRepository, recorder *auditsvc.Recorder, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{repo: repo, clients: clients, recorder: recorder, logger: logger}
}

// newNumber mints a sortable, globally unique invoice number.
func newNumber() string {
	return "INV-" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, filters *invoice.ListFilters) ([]*invoice.Invoice, int64, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *InvoiceService) Create(ctx context.Context, actor audit.Actor, req *invoice.CreateInvoiceRequest) (*invoice.Invoice, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	if _, err := s.clients.FindByID(ctx, req.ClientID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "client does not exist")
		}
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	inv := &invoice.Invoice{
		Number:     newNumber(),
		ClientID:   req.ClientID,
		Status:     invoice.StatusDraft,
		Currency:   currency,
		Items:      req.Items,
		TotalCents: invoice.Total(req.Items),
		Notes:      sql.NullString{String: req.Notes, Valid: req.Notes != ""},
		CreatedBy:  actor.UserID,
	}
	if req.DueAt != nil {
		inv.DueAt = sql.NullTime{Time: *req.DueAt, Valid: true}
	}

	id, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionCreate, "invoice", id, created.Number, nil, created)
	return created, nil
}

// Update edits line items and metadata. Only drafts are editable; sent and
// terminal invoices are immutable apart from status transitions.
func (s *InvoiceService) Update(ctx context.Context, actor audit.Actor, id int64, req *invoice.UpdateInvoiceRequest) (*invoice.Invoice, error) {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.Status != invoice.StatusDraft {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "only draft invoices can be edited")
	}

	fields := map[string]interface{}{}
	if req.Items != nil {
		if err := validateItems(req.Items); err != nil {
			return nil, err
		}
		items, err := json.Marshal(req.Items)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal invoice items: %w", err)
		}
		fields["items"] = items
		fields["total_cents"] = invoice.Total(req.Items)
	}
	if req.DueAt != nil {
		fields["due_at"] = sql.NullTime{Time: *req.DueAt, Valid: true}
	}
	if req.Notes != nil {
		fields["notes"] = sql.NullString{String: *req.Notes, Valid: *req.Notes != ""}
	}
	if len(fields) == 0 {
		return before, nil
	}
	fields["updated_at"] = time.Now()

	if _, err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	after, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionUpdate, "invoice", id, after.Number, before, after)
	return after, nil
}

// Transition moves an invoice along draft -> sent -> paid (or voids it) and
// stamps the matching timestamp.
func (s *InvoiceService) Transition(ctx context.Context, actor audit.Actor, id int64, target string) (*invoice.Invoice, error) {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !invoice.CanTransition(before.Status, target) {
		return nil, xerrors.Wrap(xerrors.ErrConflict,
			fmt.Sprintf("cannot move invoice from %s to %s", before.Status, target))
	}

	fields := map[string]interface{}{
		"status":     target,
		"updated_at": time.Now(),
	}
	switch target {
	case invoice.StatusSent:
		fields["issued_at"] = time.Now()
	case invoice.StatusPaid:
		fields["paid_at"] = time.Now()
	}

	if _, err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	after, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionTransition, "invoice", id, after.Number,
		map[string]string{"status": before.Status}, map[string]string{"status": after.Status})
	return after, nil
}

// Delete removes a draft. Issued invoices are voided, never deleted, to
// keep the numbering trail intact.
func (s *InvoiceService) Delete(ctx context.Context, actor audit.Actor, id int64) error {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != invoice.StatusDraft {
		return xerrors.Wrap(xerrors.ErrConflict, "only draft invoices can be deleted; void it instead")
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionDelete, "invoice", id, inv.Number, inv, nil)
	return nil
}

func validateItems(items []invoice.LineItem) error {
	if len(items) == 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "invoice requires at least one line item")
	}
	for _, li := range items {
		if li.Description == "" {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "line item description is required")
		}
		if li.Quantity <= 0 || li.UnitCents < 0 {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "line item amounts must be positive")
		}
	}
	return nil
}
