package clients

import (
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/google/uuid"
)

type ClientDTO struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Address   *string    `json:"address,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewClientDTO(c *models.Client) *ClientDTO {
	return &ClientDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// SummaryDTO reports how much a client owes across billable orders.
type SummaryDTO struct {
	ClientID      uuid.UUID `json:"client_id"`
	OrderCount    int64     `json:"order_count"`
	BilledCents   int64     `json:"billed_cents"`
	PaidCents     int64     `json:"paid_cents"`
	RefundedCents int64     `json:"refunded_cents"`
	BalanceCents  int64     `json:"balance_cents"`
	Balance       string    `json:"balance"`
}

func newSummaryDTO(clientID uuid.UUID, row balanceRow) *SummaryDTO {
	balance := row.BilledCents - row.RefundedCents - row.PaidCents
	return &SummaryDTO{
		ClientID:      clientID,
		OrderCount:    row.OrderCount,
		BilledCents:   row.BilledCents,
		PaidCents:     row.PaidCents,
		RefundedCents: row.RefundedCents,
		BalanceCents:  balance,
		Balance:       money.FormatCents(int(balance)),
	}
}

type CreateClientInput struct {
	Name    string
	UserID  *uuid.UUID
	Phone   *string
	Email   *string
	Address *string
	Notes   *string
}

type UpdateClientInput struct {
	Name    *string
	UserID  *uuid.UUID
	Phone   *string
	Email   *string
	Address *string
	Notes   *string
}
