// Package audit defines the audit trail domain model. Entries are written
// by database triggers inside each tenant schema, never by application code.
package audit

import (
	"encoding/json"
	"time"
)

// Operations recorded by the audit triggers.
const (
	OpCreate = "CREATE"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Entry is one row of a tenant's audit_log table.
type Entry struct {
	ID        string          `json:"id"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	Operation string          `json:"operation"`
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	ChangedBy string          `json:"changed_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows an audit listing.
type Filter struct {
	TableName string
	Operation string
	Limit     int
	Offset    int
}
