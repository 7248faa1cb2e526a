package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/internal/payments"
	"github.com/angelmondragon/stockdesk-backend/internal/returns"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
)

type itemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"gt=0,lte=100000"`
	UnitPriceCents *int   `json:"unit_price_cents,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
}

type createOrderRequest struct {
	ClientID string        `json:"client_id" validate:"required,uuid"`
	Items    []itemRequest `json:"items" validate:"required,min=1,dive"`
	Notes    *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type replaceItemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type recordPaymentRequest struct {
	AmountCents int        `json:"amount_cents" validate:"gt=0,lte=2147483647"`
	Method      string     `json:"method" validate:"required"`
	Reference   *string    `json:"reference,omitempty" validate:"omitempty,max=200"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type createReturnRequest struct {
	OrderItemID string  `json:"order_item_id" validate:"required,uuid"`
	Quantity    int     `json:"quantity" validate:"gt=0,lte=100000"`
	Reason      string  `json:"reason" validate:"required"`
	Restock     bool    `json:"restock"`
	RefundCents int     `json:"refund_cents" validate:"gte=0,lte=2147483647"`
	Note        *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ids are already validated by the uuid tag, so parse errors cannot occur here
func toItemInputs(items []itemRequest) []internalorders.ItemInput {
	out := make([]internalorders.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, internalorders.ItemInput{
			ProductID:      uuid.MustParse(item.ProductID),
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return out
}

func (req createOrderRequest) toInput() internalorders.CreateOrderInput {
	return internalorders.CreateOrderInput{
		ClientID: uuid.MustParse(req.ClientID),
		Items:    toItemInputs(req.Items),
		Notes:    req.Notes,
		Source:   enums.OrderSourceBackOffice,
	}
}

func (req updateStatusRequest) toInput() (internalorders.UpdateStatusInput, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return internalorders.UpdateStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return internalorders.UpdateStatusInput{Status: status, Note: req.Note}, nil
}

func (req recordPaymentRequest) toInput() (payments.RecordPaymentInput, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(req.Method))
	if err != nil {
		return payments.RecordPaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return payments.RecordPaymentInput{
		AmountCents: req.AmountCents,
		Method:      method,
		Reference:   req.Reference,
		PaidAt:      req.PaidAt,
	}, nil
}

func (req createReturnRequest) toInput() (returns.CreateReturnInput, error) {
	reason, err := enums.ParseReturnReason(strings.TrimSpace(req.Reason))
	if err != nil {
		return returns.CreateReturnInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return reason")
	}
	return returns.CreateReturnInput{
		OrderItemID: uuid.MustParse(req.OrderItemID),
		Quantity:    req.Quantity,
		Reason:      reason,
		Restock:     req.Restock,
		RefundCents: req.RefundCents,
		Note:        req.Note,
	}, nil
}
