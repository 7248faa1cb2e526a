package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const userUniqueIndex = "idx_clients_tenant_user"

type Service interface {
	CreateClient(ctx context.Context, actor auth.Actor, input CreateClientInput) (*ClientDTO, error)
	GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*ClientDTO, error)
	ListClients(ctx context.Context, tenantID uuid.UUID, query string, params pagination.Params) (*pagination.Page[ClientDTO], error)
	UpdateClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID, input UpdateClientInput) (*ClientDTO, error)
	DeleteClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID) error
	Summary(ctx context.Context, tenantID, clientID uuid.UUID) (*SummaryDTO, error)
}

type service struct {
	repo *Repository
	db   *db.Client
}

type ServiceParams struct {
	Repo *Repository
	DB   *db.Client
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("client repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: params.Repo, db: params.DB}, nil
}

func (s *service) CreateClient(ctx context.Context, actor auth.Actor, input CreateClientInput) (*ClientDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	client := &models.Client{
		TenantID: actor.TenantID,
		UserID:   input.UserID,
		Name:     name,
		Phone:    trimmed(input.Phone),
		Email:    lowerTrimmed(input.Email),
		Address:  trimmed(input.Address),
		Notes:    trimmed(input.Notes),
	}
	if err := s.repo.Create(ctx, client); err != nil {
		if db.IsUniqueViolation(err, userUniqueIndex) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already linked to a client")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}
	return NewClientDTO(client), nil
}

func (s *service) GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*ClientDTO, error) {
	client, err := s.repo.FindByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return NewClientDTO(client), nil
}

func (s *service) ListClients(ctx context.Context, tenantID uuid.UUID, query string, params pagination.Params) (*pagination.Page[ClientDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, tenantID, query, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(c models.Client) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	items := make([]ClientDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewClientDTO(&rows[i]))
	}
	return &pagination.Page[ClientDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) UpdateClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID, input UpdateClientInput) (*ClientDTO, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if input.UserID != nil {
		fields["user_id"] = *input.UserID
	}
	if input.Phone != nil {
		fields["phone"] = trimmed(input.Phone)
	}
	if input.Email != nil {
		fields["email"] = lowerTrimmed(input.Email)
	}
	if input.Address != nil {
		fields["address"] = trimmed(input.Address)
	}
	if input.Notes != nil {
		fields["notes"] = trimmed(input.Notes)
	}

	var out *models.Client
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, actor.TenantID, clientID); err != nil {
			return notFoundOr(err)
		}
		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, actor.TenantID, clientID, fields); err != nil {
				if db.IsUniqueViolation(err, userUniqueIndex) {
					return pkgerrors.New(pkgerrors.CodeConflict, "user is already linked to a client")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client")
			}
		}
		var err error
		out, err = repo.FindByID(ctx, actor.TenantID, clientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewClientDTO(out), nil
}

// DeleteClient removes a client without order history.
func (s *service) DeleteClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, actor.TenantID, clientID); err != nil {
			return notFoundOr(err)
		}
		count, err := repo.CountOrders(ctx, clientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count client orders")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "client has orders")
		}
		if err := repo.Delete(ctx, actor.TenantID, clientID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete client")
		}
		return nil
	})
}

func (s *service) Summary(ctx context.Context, tenantID, clientID uuid.UUID) (*SummaryDTO, error) {
	if _, err := s.repo.FindByID(ctx, tenantID, clientID); err != nil {
		return nil, notFoundOr(err)
	}
	row, err := s.repo.Balance(ctx, tenantID, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum client balance")
	}
	return newSummaryDTO(clientID, row), nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func lowerTrimmed(value *string) *string {
	v := trimmed(value)
	if v == nil {
		return nil
	}
	lower := strings.ToLower(*v)
	return &lower
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
}
