package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/tenant"
)

// Provisioner creates tenant schemas with the full table set and audit
// triggers. Every statement is IF NOT EXISTS / OR REPLACE, so re-running
// against a half-created schema completes it without touching data.
type Provisioner struct {
	pool *pgxpool.Pool
}

// NewProvisioner creates a Provisioner backed by the given pool.
func NewProvisioner(pool *pgxpool.Pool) *Provisioner {
	return &Provisioner{pool: pool}
}

// Provision creates the tenant's schema, tables, indexes, audit function,
// and audit triggers in a single transaction.
func (p *Provisioner) Provision(ctx context.Context, tenantID string) error {
	stmts, err := provisionStatements(tenantID)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("provision tenant %s: %v: %w", tenantID, err, domain.ErrProvisioning)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit provision: %w", err)
	}
	return nil
}

// Deprovision drops the tenant's schema and everything in it.
func (p *Provisioner) Deprovision(ctx context.Context, tenantID string) error {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
		return fmt.Errorf("deprovision tenant %s: %w", tenantID, err)
	}
	return nil
}

// sanitizedSchema validates the tenant ID as a UUID and returns the quoted
// schema identifier. The UUID check means the derived name can only contain
// hex digits, but the identifier is quoted anyway.
func sanitizedSchema(tenantID string) (string, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return "", fmt.Errorf("invalid tenant id %q: %w", tenantID, domain.ErrValidation)
	}
	return pgx.Identifier{tenant.SchemaFor(tenantID)}.Sanitize(), nil
}

// provisionStatements returns the ordered DDL for a tenant schema.
func provisionStatements(tenantID string) ([]string, error) {
	s, err := sanitizedSchema(tenantID)
	if err != nil {
		return nil, err
	}

	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + s,

		`CREATE TABLE IF NOT EXISTS ` + s + `.users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR UNIQUE NOT NULL,
			password_hash VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			phone VARCHAR,
			account_type VARCHAR CHECK (account_type IN ('basic', 'intermediate', 'managerial')) DEFAULT 'basic',
			is_active BOOLEAN DEFAULT true,
			must_change_password BOOLEAN DEFAULT false,
			last_login TIMESTAMPTZ,
			avatar_url VARCHAR,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.clients (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR NOT NULL,
			organization VARCHAR,
			email VARCHAR,
			mobile VARCHAR NOT NULL,
			country VARCHAR NOT NULL DEFAULT 'BR',
			state VARCHAR NOT NULL,
			address VARCHAR,
			city VARCHAR NOT NULL,
			zip_code VARCHAR,
			budget DECIMAL(15,2) DEFAULT 0,
			currency VARCHAR DEFAULT 'BRL',
			level VARCHAR,
			description TEXT,
			cpf VARCHAR,
			rg VARCHAR,
			pis VARCHAR,
			cei VARCHAR,
			professional_title VARCHAR,
			marital_status VARCHAR,
			birth_date DATE,
			inss_status VARCHAR,
			amount_paid DECIMAL(15,2) DEFAULT 0,
			referred_by VARCHAR,
			registered_by VARCHAR,
			tags TEXT[],
			status VARCHAR DEFAULT 'active',
			created_by UUID REFERENCES ` + s + `.users(id),
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.projects (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR NOT NULL,
			description TEXT,
			client_name VARCHAR NOT NULL,
			client_id UUID REFERENCES ` + s + `.clients(id),
			organization VARCHAR,
			address VARCHAR,
			budget DECIMAL(15,2) DEFAULT 0,
			currency VARCHAR DEFAULT 'BRL',
			status VARCHAR CHECK (status IN ('contacted', 'proposal', 'won', 'lost')) DEFAULT 'contacted',
			start_date DATE NOT NULL,
			due_date DATE NOT NULL,
			priority VARCHAR CHECK (priority IN ('low', 'medium', 'high', 'urgent')) DEFAULT 'medium',
			progress INTEGER DEFAULT 0 CHECK (progress >= 0 AND progress <= 100),
			tags TEXT[],
			assigned_to TEXT[],
			notes TEXT,
			created_by VARCHAR,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.project_contacts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			project_id UUID REFERENCES ` + s + `.projects(id) ON DELETE CASCADE,
			name VARCHAR NOT NULL,
			email VARCHAR NOT NULL,
			phone VARCHAR NOT NULL,
			role VARCHAR NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.tasks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR NOT NULL,
			description TEXT,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			status VARCHAR CHECK (status IN ('not_started', 'in_progress', 'completed', 'on_hold', 'cancelled')) DEFAULT 'not_started',
			priority VARCHAR CHECK (priority IN ('low', 'medium', 'high', 'urgent')) DEFAULT 'medium',
			assigned_to VARCHAR NOT NULL,
			project_id UUID REFERENCES ` + s + `.projects(id),
			client_id UUID REFERENCES ` + s + `.clients(id),
			estimated_hours DECIMAL(5,2) DEFAULT 0,
			actual_hours DECIMAL(5,2) DEFAULT 0,
			progress INTEGER DEFAULT 0 CHECK (progress >= 0 AND progress <= 100),
			tags TEXT[],
			notes TEXT,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.subtasks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			task_id UUID REFERENCES ` + s + `.tasks(id) ON DELETE CASCADE,
			title VARCHAR NOT NULL,
			completed BOOLEAN DEFAULT false,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.cash_flow (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			type VARCHAR CHECK (type IN ('income', 'expense')) NOT NULL,
			amount DECIMAL(15,2) NOT NULL,
			category_id VARCHAR NOT NULL,
			description VARCHAR NOT NULL,
			date DATE NOT NULL,
			payment_method VARCHAR,
			status VARCHAR CHECK (status IN ('pending', 'confirmed', 'cancelled')) DEFAULT 'confirmed',
			project_id UUID REFERENCES ` + s + `.projects(id),
			client_id UUID REFERENCES ` + s + `.clients(id),
			tags TEXT[],
			notes TEXT,
			is_recurring BOOLEAN DEFAULT false,
			recurring_frequency VARCHAR CHECK (recurring_frequency IN ('monthly', 'quarterly', 'yearly')),
			created_by VARCHAR,
			last_modified_by VARCHAR,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.billing_documents (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			type VARCHAR CHECK (type IN ('estimate', 'invoice')) NOT NULL,
			number VARCHAR UNIQUE NOT NULL,
			date DATE NOT NULL,
			due_date DATE NOT NULL,
			sender_id VARCHAR NOT NULL,
			sender_name VARCHAR NOT NULL,
			receiver_id VARCHAR NOT NULL,
			receiver_name VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			description TEXT,
			subtotal DECIMAL(15,2) NOT NULL,
			discount DECIMAL(15,2) DEFAULT 0,
			discount_type VARCHAR CHECK (discount_type IN ('percentage', 'fixed')) DEFAULT 'fixed',
			fee DECIMAL(15,2) DEFAULT 0,
			fee_type VARCHAR CHECK (fee_type IN ('percentage', 'fixed')) DEFAULT 'fixed',
			tax DECIMAL(15,2) DEFAULT 0,
			tax_type VARCHAR CHECK (tax_type IN ('percentage', 'fixed')) DEFAULT 'percentage',
			total DECIMAL(15,2) NOT NULL,
			currency VARCHAR DEFAULT 'BRL',
			status VARCHAR NOT NULL,
			tags TEXT[],
			notes TEXT,
			created_by VARCHAR,
			last_modified_by VARCHAR,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.billing_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID REFERENCES ` + s + `.billing_documents(id) ON DELETE CASCADE,
			description VARCHAR NOT NULL,
			quantity INTEGER NOT NULL,
			rate DECIMAL(15,2) NOT NULL,
			amount DECIMAL(15,2) NOT NULL,
			tax DECIMAL(5,2) DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.receivables_invoices (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			client_id UUID REFERENCES ` + s + `.clients(id),
			invoice_number VARCHAR UNIQUE NOT NULL,
			amount DECIMAL(15,2) NOT NULL,
			description TEXT NOT NULL,
			service_rendered VARCHAR NOT NULL,
			issue_date DATE NOT NULL,
			due_date DATE NOT NULL,
			paid_at TIMESTAMPTZ,
			status VARCHAR CHECK (status IN ('new', 'pending', 'assigned', 'paid', 'overdue', 'cancelled', 'processing')) DEFAULT 'new',
			collection_attempts INTEGER DEFAULT 0,
			payment_link TEXT,
			last_notified_at TIMESTAMPTZ,
			next_notification_at TIMESTAMPTZ,
			recurring BOOLEAN DEFAULT false,
			interval_days INTEGER DEFAULT 30,
			next_invoice_date DATE,
			urgency VARCHAR CHECK (urgency IN ('low', 'medium', 'high')) DEFAULT 'medium',
			created_by VARCHAR,
			notes TEXT,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.publications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES ` + s + `.users(id),
			published_on DATE NOT NULL,
			case_number VARCHAR NOT NULL,
			gazette VARCHAR NOT NULL,
			court VARCHAR NOT NULL,
			searched_name VARCHAR NOT NULL,
			status VARCHAR CHECK (status IN ('new', 'pending', 'assigned', 'done', 'discarded')) DEFAULT 'new',
			content TEXT,
			notes TEXT,
			assignee VARCHAR,
			urgency VARCHAR CHECK (urgency IN ('low', 'medium', 'high')) DEFAULT 'medium',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES ` + s + `.users(id),
			type VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			message TEXT NOT NULL,
			read BOOLEAN DEFAULT false,
			created_by VARCHAR,
			details TEXT,
			category VARCHAR,
			action_data JSONB,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.file_attachments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			module VARCHAR NOT NULL,
			entity_id UUID NOT NULL,
			filename VARCHAR NOT NULL,
			original_name VARCHAR NOT NULL,
			file_size BIGINT NOT NULL,
			mime_type VARCHAR NOT NULL,
			storage_url VARCHAR,
			storage_key VARCHAR,
			uploaded_by UUID REFERENCES ` + s + `.users(id),
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + s + `.audit_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES ` + s + `.users(id),
			table_name VARCHAR NOT NULL,
			record_id UUID,
			operation VARCHAR CHECK (operation IN ('CREATE', 'UPDATE', 'DELETE')) NOT NULL,
			old_data JSONB,
			new_data JSONB,
			ip_address INET,
			user_agent TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_clients_created_by ON ` + s + `.clients(created_by)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_client_id ON ` + s + `.projects(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON ` + s + `.tasks(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_flow_date ON ` + s + `.cash_flow(date)`,
		`CREATE INDEX IF NOT EXISTS idx_publications_user_id ON ` + s + `.publications(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON ` + s + `.audit_log(created_at)`,

		auditFunction(s),
	}

	for _, table := range auditedTables {
		stmts = append(stmts, auditTriggerStatements(s, table)...)
	}

	return stmts, nil
}

// auditFunction returns the trigger function that maps INSERT to a CREATE
// audit row with the new image, UPDATE to both images, DELETE to the old one.
func auditFunction(schema string) string {
	return `CREATE OR REPLACE FUNCTION ` + schema + `.audit_trigger_function()
	RETURNS TRIGGER AS $trigger$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			INSERT INTO ` + schema + `.audit_log (table_name, record_id, operation, old_data)
			VALUES (TG_TABLE_NAME, OLD.id, 'DELETE', row_to_json(OLD));
			RETURN OLD;
		ELSIF TG_OP = 'UPDATE' THEN
			INSERT INTO ` + schema + `.audit_log (table_name, record_id, operation, old_data, new_data)
			VALUES (TG_TABLE_NAME, NEW.id, 'UPDATE', row_to_json(OLD), row_to_json(NEW));
			RETURN NEW;
		ELSIF TG_OP = 'INSERT' THEN
			INSERT INTO ` + schema + `.audit_log (table_name, record_id, operation, new_data)
			VALUES (TG_TABLE_NAME, NEW.id, 'CREATE', row_to_json(NEW));
			RETURN NEW;
		END IF;
		RETURN NULL;
	END;
	$trigger$ LANGUAGE plpgsql`
}

// auditTriggerStatements drops and recreates the audit trigger for a table,
// so re-provisioning never ends up with duplicate triggers.
func auditTriggerStatements(schema, table string) []string {
	qt := pgx.Identifier{table}.Sanitize()
	name := pgx.Identifier{"audit_" + table + "_trigger"}.Sanitize()
	return []string{
		`DROP TRIGGER IF EXISTS ` + name + ` ON ` + schema + `.` + qt,
		`CREATE TRIGGER ` + name + `
		AFTER INSERT OR UPDATE OR DELETE ON ` + schema + `.` + qt + `
		FOR EACH ROW EXECUTE FUNCTION ` + schema + `.audit_trigger_function()`,
	}
}
