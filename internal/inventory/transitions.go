package inventory

import (
	"bytes"
	"slices"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/google/uuid"
)

// Delta is the change applied to a product's counters.
type Delta struct {
	Total    int
	Reserved int
}

// IsZero reports whether applying the delta would be a no-op.
func (d Delta) IsZero() bool {
	return d.Total == 0 && d.Reserved == 0
}

// unitDeltas holds the per-unit counter movement of every allowed order
// status change. Draft and canceled orders hold no stock, reserved orders
// hold reserved_stock and delivered or closed orders have consumed
// total_stock, so each entry is the difference between two footprints.
var unitDeltas = map[enums.OrderStatus]map[enums.OrderStatus]Delta{
	enums.OrderStatusDraft: {
		enums.OrderStatusReserved:  {Total: 0, Reserved: 1},
		enums.OrderStatusDelivered: {Total: -1, Reserved: 0},
		enums.OrderStatusCanceled:  {Total: 0, Reserved: 0},
	},
	enums.OrderStatusReserved: {
		enums.OrderStatusDraft:     {Total: 0, Reserved: -1},
		enums.OrderStatusDelivered: {Total: -1, Reserved: -1},
		enums.OrderStatusCanceled:  {Total: 0, Reserved: -1},
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusReserved: {Total: 1, Reserved: 1},
		enums.OrderStatusDraft:    {Total: 1, Reserved: 0},
		enums.OrderStatusClosed:   {Total: 0, Reserved: 0},
	},
	enums.OrderStatusClosed: {
		enums.OrderStatusDelivered: {Total: 0, Reserved: 0},
	},
	enums.OrderStatusCanceled: {
		enums.OrderStatusDraft: {Total: 0, Reserved: 0},
	},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	_, ok := unitDeltas[from][to]
	return ok
}

// AllowedTargets lists the statuses reachable from the given one.
func AllowedTargets(from enums.OrderStatus) []enums.OrderStatus {
	targets := make([]enums.OrderStatus, 0, len(unitDeltas[from]))
	for to := range unitDeltas[from] {
		targets = append(targets, to)
	}
	slices.Sort(targets)
	return targets
}

// DeltaFor returns the counter movement for qty units changing status.
func DeltaFor(from, to enums.OrderStatus, qty int) (Delta, error) {
	if qty <= 0 {
		return Delta{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	unit, ok := unitDeltas[from][to]
	if !ok {
		return Delta{}, transitionError(from, to)
	}
	return Delta{Total: unit.Total * qty, Reserved: unit.Reserved * qty}, nil
}

// Line is one product quantity taking part in a status change.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Adjustment is the net change planned for a single product. Quantity is the
// number of units behind it and is reported back on shortfalls.
type Adjustment struct {
	ProductID uuid.UUID
	Quantity  int
	Delta
}

// Restock builds the adjustment for units coming back onto the shelf.
func Restock(productID uuid.UUID, qty int) Adjustment {
	return Adjustment{ProductID: productID, Quantity: qty, Delta: Delta{Total: qty}}
}

// Manual builds the adjustment for a hand-entered on-hand correction.
func Manual(productID uuid.UUID, delta int) Adjustment {
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	return Adjustment{ProductID: productID, Quantity: qty, Delta: Delta{Total: delta}}
}

// Plan turns the lines of an order into per-product adjustments, merging
// repeated products and sorting by product id so row locks are always taken
// in the same order.
func Plan(from, to enums.OrderStatus, lines []Line) ([]Adjustment, error) {
	if !CanTransition(from, to) {
		return nil, transitionError(from, to)
	}

	merged := map[uuid.UUID]int{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		merged[line.ProductID] += line.Quantity
	}

	adjustments := make([]Adjustment, 0, len(merged))
	for productID, qty := range merged {
		delta, err := DeltaFor(from, to, qty)
		if err != nil {
			return nil, err
		}
		adjustments = append(adjustments, Adjustment{ProductID: productID, Quantity: qty, Delta: delta})
	}
	sortByProduct(adjustments)
	return adjustments, nil
}

func sortByProduct(adjustments []Adjustment) {
	slices.SortFunc(adjustments, func(a, b Adjustment) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
}

func transitionError(from, to enums.OrderStatus) error {
	if from == to {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is already %s", to)
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, to).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": AllowedTargets(from),
		})
}
