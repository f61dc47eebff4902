package inventory

import (
	"fmt"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
)

// TransferAction acción que un actor solicita sobre un traslado.
type TransferAction string

const (
	ActionApprove  TransferAction = "approve"
	ActionReject   TransferAction = "reject"
	ActionComplete TransferAction = "complete"
	ActionCancel   TransferAction = "cancel"
)

// transitions tabla de la máquina de estados: estado origen -> acción -> estado destino.
var transitions = map[entity.TransferStatus]map[TransferAction]entity.TransferStatus{
	entity.TransferPending: {
		ActionApprove: entity.TransferInTransit,
		ActionReject:  entity.TransferRejected,
		ActionCancel:  entity.TransferCancelled,
	},
	entity.TransferInTransit: {
		ActionComplete: entity.TransferCompleted,
		ActionReject:   entity.TransferRejected,
		ActionCancel:   entity.TransferCancelled,
	},
}

// NextTransferStatus resuelve el estado destino de action desde from.
func NextTransferStatus(from entity.TransferStatus, action TransferAction) (entity.TransferStatus, error) {
	next, ok := transitions[from][action]
	if !ok {
		return "", fmt.Errorf("%w: %s desde %s", domain.ErrInvalidStateTransition, action, from)
	}
	return next, nil
}

// CanTransition indica si action es válida desde from.
func CanTransition(from entity.TransferStatus, action TransferAction) bool {
	_, err := NextTransferStatus(from, action)
	return err == nil
}

// InferTransferType deduce el alcance del traslado: Branch si cambia la sucursal, Counter si cambia
// la vitrina, Box si solo cambia la caja.
func InferTransferType(src, dst entity.Location) (entity.TransferType, error) {
	switch {
	case src.Equal(dst):
		return "", domain.ErrSameLocation
	case src.BranchID != dst.BranchID:
		return entity.TransferBranch, nil
	case src.CounterID != dst.CounterID:
		return entity.TransferCounter, nil
	default:
		return entity.TransferBox, nil
	}
}
