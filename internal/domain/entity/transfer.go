package entity

import "time"

// TransferType alcance del traslado.
type TransferType string

const (
	TransferBranch  TransferType = "Branch"
	TransferCounter TransferType = "Counter"
	TransferBox     TransferType = "Box"
	TransferMixed   TransferType = "Mixed"
)

// Valid indica si el tipo es conocido.
func (t TransferType) Valid() bool {
	switch t {
	case TransferBranch, TransferCounter, TransferBox, TransferMixed:
		return true
	}
	return false
}

// TransferStatus estado de la solicitud de traslado.
type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferInTransit TransferStatus = "InTransit"
	TransferCompleted TransferStatus = "Completed"
	TransferRejected  TransferStatus = "Rejected"
	TransferCancelled TransferStatus = "Cancelled"
)

// IsOpen: Pending o InTransit bloquean otro traslado del mismo producto.
func (s TransferStatus) IsOpen() bool {
	return s == TransferPending || s == TransferInTransit
}

// IsTerminal indica que no admite más transiciones.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferRejected || s == TransferCancelled
}

// TransferRequest solicitud de traslado de una pieza entre dos ubicaciones.
// Version crece con cada transición y es la precondición de la concurrencia optimista.
type TransferRequest struct {
	ID              int64          `json:"id"`
	TenantID        string         `json:"tenant_id"`
	Number          string         `json:"number"`
	ProductID       int64          `json:"product_id"`
	TagLabel        *string        `json:"tag_label,omitempty"`
	Type            TransferType   `json:"type"`
	Source          Location       `json:"source"`
	Destination     Location       `json:"destination"`
	Status          TransferStatus `json:"status"`
	Version         int            `json:"version"`
	Reason          string         `json:"reason,omitempty"`
	Remarks         string         `json:"remarks,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	RejectedBy  string     `json:"rejected_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TransferFilter criterios de listado.
type TransferFilter struct {
	ProductID *int64
	Status    *TransferStatus
	Limit     int
	Offset    int
}
