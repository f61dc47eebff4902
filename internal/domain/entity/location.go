package entity

import "fmt"

// Location clave de ubicación física de una pieza: sucursal, vitrina y caja opcional.
// Los IDs vienen ya validados contra los datos maestros; aquí solo se valida la forma.
type Location struct {
	BranchID  int64  `json:"branch_id"`
	CounterID int64  `json:"counter_id"`
	BoxID     *int64 `json:"box_id,omitempty"`
}

// Valid indica si la clave está bien formada (IDs positivos, caja opcional positiva).
func (l Location) Valid() bool {
	if l.BranchID <= 0 || l.CounterID <= 0 {
		return false
	}
	return l.BoxID == nil || *l.BoxID > 0
}

// Equal compara dos ubicaciones por valor, incluida la caja.
func (l Location) Equal(o Location) bool {
	if l.BranchID != o.BranchID || l.CounterID != o.CounterID {
		return false
	}
	switch {
	case l.BoxID == nil && o.BoxID == nil:
		return true
	case l.BoxID == nil || o.BoxID == nil:
		return false
	default:
		return *l.BoxID == *o.BoxID
	}
}

func (l Location) String() string {
	if l.BoxID == nil {
		return fmt.Sprintf("B%d/C%d", l.BranchID, l.CounterID)
	}
	return fmt.Sprintf("B%d/C%d/X%d", l.BranchID, l.CounterID, *l.BoxID)
}

// BoxRef devuelve un puntero a id, útil para construir ubicaciones con caja.
func BoxRef(id int64) *int64 { return &id }
