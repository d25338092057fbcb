package orders

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ComputeTotal sums unit amount times quantity over every line.
func ComputeTotal(lines []models.OrderLine) decimal.Decimal {
	return lo.Reduce(lines, func(total decimal.Decimal, line models.OrderLine, _ int) decimal.Decimal {
		return total.Add(line.Subtotal())
	}, decimal.Zero)
}

// CheckTransition decides whether an order in status from may move to status
// to. It reports changed=false for a same-status request, which callers treat
// as a successful no-op. Any non-terminal status may move to any other status;
// completed and cancelled never move again.
func CheckTransition(from, to enums.OrderStatus) (bool, error) {
	if !to.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": to.String()})
	}
	if from == to {
		return false, nil
	}
	if from.IsTerminal() {
		return false, terminalViolation(from, to)
	}
	if !from.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "order holds an unknown status").
			WithDetails(map[string]any{"status": from.String()})
	}
	return true, nil
}

func terminalViolation(current, requested enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is "+current.String()+" and can no longer change status").
		WithDetails(map[string]any{"current": current, "requested": requested})
}
