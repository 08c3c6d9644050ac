package postgres

import (
	"slices"
	"testing"
)

func TestValidTable(t *testing.T) {
	for _, table := range []string{"clients", "projects", "tasks", "cash_flow",
		"billing_documents", "receivables_invoices", "publications"} {
		if !validTable(table) {
			t.Errorf("%s should be allow-listed", table)
		}
	}
	for _, table := range []string{"", "users", "audit_log", "pg_catalog",
		"clients; DROP TABLE clients", "Clients"} {
		if validTable(table) {
			t.Errorf("%s must not be reachable through the scoped handle", table)
		}
	}
}

func TestValidColumn(t *testing.T) {
	if !validColumn("clients", "name") {
		t.Error("clients.name should be writable")
	}
	if !validColumn("receivables_invoices", "invoice_number") {
		t.Error("receivables_invoices.invoice_number should be writable")
	}
	for _, col := range []string{"id", "created_at", "updated_at", "password_hash", "nope"} {
		if validColumn("clients", col) {
			t.Errorf("clients.%s must not be writable", col)
		}
	}
	if validColumn("no_such_table", "name") {
		t.Error("unknown table must have no columns")
	}
}

func TestHasUpdatedAt(t *testing.T) {
	for _, table := range []string{"clients", "projects", "tasks", "cash_flow"} {
		if !hasUpdatedAt(table) {
			t.Errorf("%s should carry updated_at", table)
		}
	}
	for _, table := range []string{"subtasks", "billing_items", "notifications",
		"project_contacts", "file_attachments"} {
		if hasUpdatedAt(table) {
			t.Errorf("%s has no updated_at column", table)
		}
	}
}

func TestAuditedTablesAreKnown(t *testing.T) {
	// users is audited but deliberately not exposed through the scoped
	// handle; everything else on the audit list must be an entity table.
	for _, table := range auditedTables {
		if table == "users" {
			continue
		}
		if !validTable(table) {
			t.Errorf("audited table %s is not in the entity registry", table)
		}
	}
}

func TestEntityTables(t *testing.T) {
	tables := EntityTables()
	if len(tables) != len(entityColumns) {
		t.Fatalf("EntityTables() returned %d tables, want %d", len(tables), len(entityColumns))
	}
	if !slices.Contains(tables, "clients") {
		t.Error("clients missing from EntityTables()")
	}
}
