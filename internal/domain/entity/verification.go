package entity

import "time"

// VerificationStatus estado de una sesión de conteo.
type VerificationStatus string

const (
	VerificationOpen   VerificationStatus = "Open"
	VerificationClosed VerificationStatus = "Closed"
)

// VerificationSession conteo físico por etiqueta dentro de un alcance (sucursal, vitrina, categoría).
// No escribe en el libro.
type VerificationSession struct {
	ID        int64               `json:"id"`
	TenantID  string              `json:"tenant_id"`
	Scope     ProductScope        `json:"scope"`
	Status    VerificationStatus  `json:"status"`
	StartedAt time.Time           `json:"started_at"`
	StartedBy string              `json:"started_by"`
	ClosedAt  *time.Time          `json:"closed_at,omitempty"`
	ClosedBy  string              `json:"closed_by,omitempty"`
	Result    *VerificationResult `json:"result,omitempty"`
}

// VerificationScan lectura de una etiqueta dentro de la sesión; una por etiqueta.
type VerificationScan struct {
	SessionID int64     `json:"session_id"`
	TagLabel  string    `json:"tag_label"`
	ScannedAt time.Time `json:"scanned_at"`
}

// VerificationResult comparación esperado contra leído al cerrar la sesión.
// Los productos esperados sin etiqueta no se pueden leer y se cuentan aparte.
type VerificationResult struct {
	Expected   int      `json:"expected"`
	Scanned    int      `json:"scanned"`
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	Unexpected []string `json:"unexpected"`
	Untagged   int      `json:"untagged"`
}
