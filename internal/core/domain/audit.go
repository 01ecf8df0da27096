package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister AuditAction = "REGISTER"
	AuditActionLogin    AuditAction = "LOGIN"
	AuditActionTransfer AuditAction = "TRANSFER"
	AuditActionMint     AuditAction = "MINT"
)

// AuditLog records a single audited request. It is an access trail, not a
// record of balance movements.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	CallerID     *AccountID  `json:"caller_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
