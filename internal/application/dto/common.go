package dto

import "github.com/jhoicas/joyeria-ledger/internal/domain/entity"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=1000"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LocationRequest ubicación física (sucursal, vitrina, caja opcional).
type LocationRequest struct {
	BranchID  int64  `json:"branch_id" validate:"required,gt=0"`
	CounterID int64  `json:"counter_id" validate:"required,gt=0"`
	BoxID     *int64 `json:"box_id,omitempty" validate:"omitempty,gt=0"`
}

// ToEntity convierte a la ubicación del dominio.
func (l LocationRequest) ToEntity() entity.Location {
	return entity.Location{BranchID: l.BranchID, CounterID: l.CounterID, BoxID: l.BoxID}
}
