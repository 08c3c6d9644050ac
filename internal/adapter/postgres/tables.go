package postgres

// Tenant schema table registry. Every identifier that reaches a query
// builder is checked against these sets first; request input never selects
// an identifier directly.

// auditedTables are the tables the audit trigger is installed on.
var auditedTables = []string{
	"users",
	"clients",
	"projects",
	"tasks",
	"cash_flow",
	"billing_documents",
	"receivables_invoices",
}

// entityColumns maps each tenant table exposed through the scoped handle to
// its writable/filterable columns. id and timestamps are managed by the
// database and excluded from inserts and updates.
var entityColumns = map[string]map[string]bool{
	"clients": cols("name", "organization", "email", "mobile", "country", "state",
		"address", "city", "zip_code", "budget", "currency", "level", "description",
		"cpf", "rg", "pis", "cei", "professional_title", "marital_status",
		"birth_date", "inss_status", "amount_paid", "referred_by", "registered_by",
		"tags", "status", "created_by"),
	"projects": cols("title", "description", "client_name", "client_id",
		"organization", "address", "budget", "currency", "status", "start_date",
		"due_date", "priority", "progress", "tags", "assigned_to", "notes",
		"created_by"),
	"project_contacts": cols("project_id", "name", "email", "phone", "role"),
	"tasks": cols("title", "description", "start_date", "end_date", "status",
		"priority", "assigned_to", "project_id", "client_id", "estimated_hours",
		"actual_hours", "progress", "tags", "notes", "completed_at"),
	"subtasks": cols("task_id", "title", "completed", "completed_at"),
	"cash_flow": cols("type", "amount", "category_id", "description", "date",
		"payment_method", "status", "project_id", "client_id", "tags", "notes",
		"is_recurring", "recurring_frequency", "created_by", "last_modified_by"),
	"billing_documents": cols("type", "number", "date", "due_date", "sender_id",
		"sender_name", "receiver_id", "receiver_name", "title", "description",
		"subtotal", "discount", "discount_type", "fee", "fee_type", "tax",
		"tax_type", "total", "currency", "status", "tags", "notes", "created_by",
		"last_modified_by"),
	"billing_items": cols("document_id", "description", "quantity", "rate",
		"amount", "tax"),
	"receivables_invoices": cols("client_id", "invoice_number", "amount",
		"description", "service_rendered", "issue_date", "due_date", "paid_at",
		"status", "collection_attempts", "payment_link", "last_notified_at",
		"next_notification_at", "recurring", "interval_days", "next_invoice_date",
		"urgency", "created_by", "notes"),
	"publications": cols("user_id", "published_on", "case_number", "gazette",
		"court", "searched_name", "status", "content", "notes", "assignee",
		"urgency"),
	"notifications": cols("user_id", "type", "title", "message", "read",
		"created_by", "details", "category", "action_data"),
	"file_attachments": cols("module", "entity_id", "filename", "original_name",
		"file_size", "mime_type", "storage_url", "storage_key", "uploaded_by"),
}

// childTables carry only created_at; the rest also have updated_at.
var childTables = map[string]bool{
	"project_contacts": true,
	"subtasks":         true,
	"billing_items":    true,
	"notifications":    true,
	"file_attachments": true,
}

func hasUpdatedAt(table string) bool {
	return !childTables[table]
}

func cols(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// EntityTables returns the tables reachable through the scoped handle,
// for route registration.
func EntityTables() []string {
	tables := make([]string, 0, len(entityColumns))
	for t := range entityColumns {
		tables = append(tables, t)
	}
	return tables
}

// validTable reports whether t is an allow-listed entity table.
func validTable(t string) bool {
	_, ok := entityColumns[t]
	return ok
}

// validColumn reports whether col is writable/filterable on table t.
func validColumn(t, col string) bool {
	return entityColumns[t][col]
}
