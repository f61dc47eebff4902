package inventory

import "github.com/shopspring/decimal"

// ValueScale decimales con los que se redondean los valores derivados por promedio o división.
const ValueScale = 4

// AverageUnitValue promedio ponderado vigente: valor acumulado / cantidad acumulada.
// Sin existencia positiva el promedio es cero.
func AverageUnitValue(runningQty, runningValue decimal.Decimal) decimal.Decimal {
	if runningQty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return runningValue.DivRound(runningQty, ValueScale)
}

// NormalizeValues deriva el par (unitario, total) de un movimiento de cantidad qty:
//   - solo unitario: total = unitario × qty
//   - solo total: unitario = total ÷ qty
//   - ambos: se conservan; el total manda al valorizar
//   - ninguno: ambos vacíos y el evento se valoriza al promedio vigente del día
func NormalizeValues(qty decimal.Decimal, unit, total *decimal.Decimal) (*decimal.Decimal, *decimal.Decimal) {
	switch {
	case unit != nil && total != nil:
		u, t := *unit, *total
		return &u, &t
	case unit != nil:
		u := *unit
		t := u.Mul(qty)
		return &u, &t
	case total != nil:
		t := *total
		if qty.IsZero() {
			return nil, &t
		}
		u := t.DivRound(qty, ValueScale)
		return &u, &t
	default:
		return nil, nil
	}
}

// EventValue valor monetario de un movimiento: total si existe, si no unitario × cantidad,
// si no promedio vigente × cantidad.
func EventValue(qty decimal.Decimal, unit, total *decimal.Decimal, average decimal.Decimal) decimal.Decimal {
	switch {
	case total != nil:
		return *total
	case unit != nil:
		return unit.Mul(qty)
	default:
		return average.Mul(qty).Round(ValueScale)
	}
}
