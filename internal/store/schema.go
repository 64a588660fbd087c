package store

// initSchema creates the database schema with all tables and indexes
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		industry TEXT,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		updated_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer))
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		display_name TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		company_id INTEGER,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (company_id) REFERENCES companies(id)
	);

	CREATE TABLE IF NOT EXISTS vendors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL DEFAULT 'Software',
		description TEXT,
		feed_keyword TEXT,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer))
	);

	CREATE TABLE IF NOT EXISTS company_vendors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		vendor_id INTEGER NOT NULL,
		use_case_description TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE,
		FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE,
		UNIQUE(company_id, vendor_id)
	);

	CREATE TABLE IF NOT EXISTS user_companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		company_id INTEGER NOT NULL,
		is_primary BOOLEAN NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS vulnerabilities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cve_id TEXT,
		title TEXT NOT NULL,
		description TEXT,
		source TEXT NOT NULL,
		source_url TEXT,
		published_date INTEGER,
		severity_score REAL,
		severity_level TEXT NOT NULL DEFAULT 'Unknown',
		tlp_rating TEXT NOT NULL,
		affected_products TEXT,
		vendor_id INTEGER,
		duplicate BOOLEAN NOT NULL DEFAULT 0,
		duplicate_of_id INTEGER,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		updated_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (vendor_id) REFERENCES vendors(id),
		FOREIGN KEY (duplicate_of_id) REFERENCES vulnerabilities(id)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vulnerability_id INTEGER NOT NULL,
		company_id INTEGER NOT NULL,
		assigned_by_user_id INTEGER NOT NULL,
		assigned_to_user_id INTEGER NOT NULL,
		priority TEXT NOT NULL DEFAULT 'Medium',
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		resolved_at INTEGER,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		updated_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (vulnerability_id) REFERENCES vulnerabilities(id) ON DELETE CASCADE,
		FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE,
		FOREIGN KEY (assigned_by_user_id) REFERENCES users(id),
		FOREIGN KEY (assigned_to_user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS vulnerability_ratings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vulnerability_id INTEGER NOT NULL,
		company_id INTEGER NOT NULL,
		relevance_score INTEGER NOT NULL,
		reasoning TEXT,
		relevant BOOLEAN NOT NULL DEFAULT 0,
		vendor_match BOOLEAN NOT NULL DEFAULT 0,
		use_case_match BOOLEAN NOT NULL DEFAULT 0,
		rated_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (vulnerability_id) REFERENCES vulnerabilities(id) ON DELETE CASCADE,
		FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE,
		UNIQUE(vulnerability_id, company_id)
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		action_type TEXT NOT NULL,
		entity_type TEXT,
		entity_id INTEGER,
		details TEXT,
		ip_address TEXT,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer)),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_users_subject ON users(subject_id);
	CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id);
	CREATE INDEX IF NOT EXISTS idx_company_vendors_company ON company_vendors(company_id);
	CREATE INDEX IF NOT EXISTS idx_user_companies_user ON user_companies(user_id);
	CREATE INDEX IF NOT EXISTS idx_vulnerabilities_cve ON vulnerabilities(cve_id);
	CREATE INDEX IF NOT EXISTS idx_vulnerabilities_tlp ON vulnerabilities(tlp_rating);
	CREATE INDEX IF NOT EXISTS idx_vulnerabilities_vendor ON vulnerabilities(vendor_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_vuln_company ON tasks(vulnerability_id, company_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to_user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_ratings_company ON vulnerability_ratings(company_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_user ON audit_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
