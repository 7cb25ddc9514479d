package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin       = "LOGIN"
	AuditActionKRSCreate   = "KRS_CREATE"
	AuditActionKRSDelete   = "KRS_DELETE"
	AuditActionKRSSubmit   = "KRS_SUBMIT"
	AuditActionKRSApprove  = "KRS_APPROVE"
	AuditActionKRSReject   = "KRS_REJECT"
	AuditActionKRSBulk     = "KRS_BULK_CREATE"
	AuditActionGradePosted = "GRADE_POST"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
