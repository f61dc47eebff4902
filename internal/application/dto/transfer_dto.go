package dto

import "github.com/jhoicas/joyeria-ledger/internal/domain/entity"

// CreateTransferRequest body para POST /api/transfers. Type se infiere si viene vacío.
type CreateTransferRequest struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	Type        string          `json:"type,omitempty" validate:"omitempty,oneof=Branch Counter Box Mixed"`
	Source      LocationRequest `json:"source" validate:"required"`
	Destination LocationRequest `json:"destination" validate:"required"`
	Reason      string          `json:"reason,omitempty" validate:"max=500"`
	Remarks     string          `json:"remarks,omitempty" validate:"max=500"`
}

// TransferActionRequest body opcional de approve/reject/complete/cancel.
type TransferActionRequest struct {
	Remarks string `json:"remarks,omitempty" validate:"max=500"`
	Reason  string `json:"reason,omitempty" validate:"max=500"`
}

// TransferQuery filtros de GET /api/transfers.
type TransferQuery struct {
	PageRequest
	ProductID int64  `query:"product_id" validate:"omitempty,gt=0"`
	Status    string `query:"status" validate:"omitempty,oneof=Pending InTransit Completed Rejected Cancelled"`
}

// TransferListResponse página de traslados.
type TransferListResponse struct {
	Items []*entity.TransferRequest `json:"items"`
	Page  PageResponse              `json:"page"`
}
