package storage

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create alerts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS alerts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp DATETIME NOT NULL,
					severity TEXT NOT NULL,
					subject TEXT NOT NULL,
					message TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
				CREATE INDEX IF NOT EXISTS idx_alerts_subject ON alerts(subject, severity);
			`,
		},
		{
			Version:     "002",
			Description: "Create emergency actions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS emergency_actions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					contract_name TEXT NOT NULL,
					address TEXT NOT NULL,
					kind TEXT NOT NULL,
					attempted_at DATETIME NOT NULL,
					outcome TEXT NOT NULL,
					reason TEXT,
					tx_hash TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_actions_contract ON emergency_actions(contract_name);
				CREATE INDEX IF NOT EXISTS idx_actions_attempted ON emergency_actions(attempted_at);
			`,
		},
		{
			Version:     "003",
			Description: "Create health snapshots table",
			SQL: `
				CREATE TABLE IF NOT EXISTS health_snapshots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					contract_name TEXT NOT NULL,
					address TEXT NOT NULL,
					native_balance TEXT NOT NULL,
					activity_count INTEGER NOT NULL,
					observed_at DATETIME NOT NULL,
					status TEXT NOT NULL,
					error TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_snapshots_contract ON health_snapshots(contract_name, observed_at);
			`,
		},
		{
			Version:     "004",
			Description: "Create reports table",
			SQL: `
				CREATE TABLE IF NOT EXISTS reports (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					created_at DATETIME NOT NULL,
					network TEXT NOT NULL,
					overall_status TEXT NOT NULL,
					payload TEXT NOT NULL -- JSON
				);

				CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create alerts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS alerts (
					id SERIAL PRIMARY KEY,
					timestamp TIMESTAMPTZ NOT NULL,
					severity TEXT NOT NULL,
					subject TEXT NOT NULL,
					message TEXT NOT NULL,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
				CREATE INDEX IF NOT EXISTS idx_alerts_subject ON alerts(subject, severity);
			`,
		},
		{
			Version:     "002",
			Description: "Create emergency actions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS emergency_actions (
					id SERIAL PRIMARY KEY,
					contract_name TEXT NOT NULL,
					address TEXT NOT NULL,
					kind TEXT NOT NULL,
					attempted_at TIMESTAMPTZ NOT NULL,
					outcome TEXT NOT NULL,
					reason TEXT,
					tx_hash TEXT,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_actions_contract ON emergency_actions(contract_name);
				CREATE INDEX IF NOT EXISTS idx_actions_attempted ON emergency_actions(attempted_at);
			`,
		},
		{
			Version:     "003",
			Description: "Create health snapshots table",
			SQL: `
				CREATE TABLE IF NOT EXISTS health_snapshots (
					id SERIAL PRIMARY KEY,
					contract_name TEXT NOT NULL,
					address TEXT NOT NULL,
					native_balance TEXT NOT NULL,
					activity_count BIGINT NOT NULL,
					observed_at TIMESTAMPTZ NOT NULL,
					status TEXT NOT NULL,
					error TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_snapshots_contract ON health_snapshots(contract_name, observed_at);
			`,
		},
		{
			Version:     "004",
			Description: "Create reports table",
			SQL: `
				CREATE TABLE IF NOT EXISTS reports (
					id SERIAL PRIMARY KEY,
					created_at TIMESTAMPTZ NOT NULL,
					network TEXT NOT NULL,
					overall_status TEXT NOT NULL,
					payload TEXT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
			`,
		},
	}
}
