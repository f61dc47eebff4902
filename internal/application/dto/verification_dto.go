package dto

// StartVerificationRequest alcance de la sesión: sucursal obligatoria, vitrina y categoría opcionales.
type StartVerificationRequest struct {
	BranchID   int64  `json:"branch_id" validate:"required,gt=0"`
	CounterID  *int64 `json:"counter_id,omitempty" validate:"omitempty,gt=0"`
	CategoryID *int64 `json:"category_id,omitempty" validate:"omitempty,gt=0"`
}

// ScanRequest lectura de una etiqueta.
type ScanRequest struct {
	TagLabel string `json:"tag_label" validate:"required,max=64"`
}

// ScanResponse indica si la etiqueta era nueva en la sesión.
type ScanResponse struct {
	SessionID int64  `json:"session_id"`
	TagLabel  string `json:"tag_label"`
	New       bool   `json:"new"`
}
