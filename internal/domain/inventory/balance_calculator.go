package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// Opening apertura de un día: el cierre del día anterior o cero.
type Opening struct {
	Qty   decimal.Decimal
	Value decimal.Decimal
}

// OpeningFrom toma el cierre de prev; nil es el caso base (cero).
func OpeningFrom(prev *entity.DailyBalance) Opening {
	if prev == nil {
		return Opening{Qty: decimal.Zero, Value: decimal.Zero}
	}
	return Opening{Qty: prev.ClosingQty, Value: prev.ClosingValue}
}

// Fold pliega los eventos de un día sobre la apertura y devuelve la fila del día.
// Es una función pura: los mismos eventos y la misma apertura producen siempre la misma fila.
// Los eventos se ordenan por (occurredAt, id) para que el promedio vigente sea determinista.
func Fold(tenantID string, productID int64, date time.Time, opening Opening, events []*entity.MovementEvent) *entity.DailyBalance {
	b := entity.ZeroBalance(tenantID, productID, date)
	b.OpeningQty = opening.Qty
	b.OpeningValue = opening.Value

	ordered := make([]*entity.MovementEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].OccurredAt.Equal(ordered[j].OccurredAt) {
			return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	// Sin existencia positiva se conserva el último promedio conocido del día, para que
	// una salida y su entrada de traslado valgan lo mismo.
	runQty, runValue := opening.Qty, opening.Value
	lastAverage := AverageUnitValue(runQty, runValue)
	for _, e := range ordered {
		qty := e.Quantity
		if runQty.GreaterThan(decimal.Zero) {
			lastAverage = AverageUnitValue(runQty, runValue)
		}
		value := EventValue(qty, e.UnitValue, e.TotalValue, lastAverage)

		switch e.Kind {
		case entity.MovementAddition:
			b.AddedQty = b.AddedQty.Add(qty)
			b.AddedValue = b.AddedValue.Add(value)
		case entity.MovementSale:
			b.SoldQty = b.SoldQty.Add(qty)
			b.SoldValue = b.SoldValue.Add(value)
		case entity.MovementReturn:
			b.ReturnedQty = b.ReturnedQty.Add(qty)
			b.ReturnedValue = b.ReturnedValue.Add(value)
		case entity.MovementTransferIn:
			b.TransferInQty = b.TransferInQty.Add(qty)
			b.TransferInValue = b.TransferInValue.Add(value)
		case entity.MovementTransferOut:
			b.TransferOutQty = b.TransferOutQty.Add(qty)
			b.TransferOutValue = b.TransferOutValue.Add(value)
		case entity.MovementAdjustment:
			if e.Direction == entity.DirectionOut {
				b.AdjustedOutQty = b.AdjustedOutQty.Add(qty)
				b.AdjustedOutValue = b.AdjustedOutValue.Add(value)
			} else {
				b.AdjustedInQty = b.AdjustedInQty.Add(qty)
				b.AdjustedInValue = b.AdjustedInValue.Add(value)
			}
		default:
			continue
		}

		if Inbound(e) {
			runQty, runValue = runQty.Add(qty), runValue.Add(value)
		} else {
			runQty, runValue = runQty.Sub(qty), runValue.Sub(value)
		}
		b.EventCount++
		if e.ID > b.LastEventID {
			b.LastEventID = e.ID
		}
	}

	b.ClosingQty = b.ExpectedClosingQty()
	b.ClosingValue = b.ExpectedClosingValue()
	return b
}

// Inbound indica si el evento suma existencia. Un ajuste sin sentido explícito cuenta como entrada.
func Inbound(e *entity.MovementEvent) bool {
	if d := e.Kind.ImpliedDirection(); d != "" {
		return d == entity.DirectionIn
	}
	return e.Direction != entity.DirectionOut
}

// LocationFlows agrupa las cantidades del día por ubicación, en orden de primera aparición.
func LocationFlows(events []*entity.MovementEvent) []entity.LocationFlow {
	var flows []entity.LocationFlow
	index := make(map[string]int)
	for _, e := range events {
		key := e.Location.String()
		i, ok := index[key]
		if !ok {
			flows = append(flows, entity.LocationFlow{Location: e.Location, InQty: decimal.Zero, OutQty: decimal.Zero})
			i = len(flows) - 1
			index[key] = i
		}
		if Inbound(e) {
			flows[i].InQty = flows[i].InQty.Add(e.Quantity)
		} else {
			flows[i].OutQty = flows[i].OutQty.Add(e.Quantity)
		}
		flows[i].NetQty = flows[i].InQty.Sub(flows[i].OutQty)
	}
	return flows
}
