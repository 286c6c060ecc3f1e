// internal/service/client/client.go
package client

import (
	"context"
	"database/sql"
	"time"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/domain/client"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/repository/postgres"
	auditsvc "billhub-service/internal/service/audit"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type ClientService struct {
	repo     *postgres.ClientRepository
	recorder *auditsvc.Recorder
	logger   *zap.Logger
}

func NewClientService(repo *postgres.ClientRepository, recorder *auditsvc.Recorder, logger *zap.Logger) *ClientService {
	return &ClientService{repo: repo, recorder: recorder, logger: logger}
}

func (s *ClientService) Get(ctx context.Context, id int64) (*client.Client, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ClientService) List(ctx context.Context, filters *client.ListFilters) ([]*client.Client, int64, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *ClientService) Create(ctx context.Context, actor audit.Actor, req *client.CreateClientRequest) (*client.Client, error) {
	c := &client.Client{
		Name:           req.Name,
		ContactName:    nullable(req.ContactName),
		ContactEmail:   nullable(req.ContactEmail),
		ContactPhone:   nullable(req.ContactPhone),
		BillingStreet:  nullable(req.BillingStreet),
		BillingCity:    nullable(req.BillingCity),
		BillingCountry: nullable(req.BillingCountry),
		TaxNumber:      nullable(req.TaxNumber),
		Notes:          nullable(req.Notes),
		Tags:           req.Tags,
		IsActive:       true,
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionCreate, "client", id, created.Name, nil, created)
	return created, nil
}

func (s *ClientService) Update(ctx context.Context, actor audit.Actor, id int64, req *client.UpdateClientRequest) (*client.Client, error) {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = nullable(*v)
		}
	}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	setString("contact_name", req.ContactName)
	setString("contact_email", req.ContactEmail)
	setString("contact_phone", req.ContactPhone)
	setString("billing_street", req.BillingStreet)
	setString("billing_city", req.BillingCity)
	setString("billing_country", req.BillingCountry)
	setString("tax_number", req.TaxNumber)
	setString("notes", req.Notes)
	if req.Tags != nil {
		fields["tags"] = pq.Array(req.Tags)
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
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

	s.recorder.RecordUserAction(ctx, actor, audit.ActionUpdate, "client", id, after.Name, before, after)
	return after, nil
}

// Delete removes a client without billing history; clients with invoices
// must be deactivated instead.
func (s *ClientService) Delete(ctx context.Context, actor audit.Actor, id int64) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	has, err := s.repo.HasInvoices(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return xerrors.Wrap(xerrors.ErrConflict, "client has invoices; deactivate instead")
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionDelete, "client", id, c.Name, c, nil)
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
