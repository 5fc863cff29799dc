package database

// CreateTables creates the transcript, account, and audit tables if they do
// not exist. Safe to call on every startup.
func (s *Store) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(36) PRIMARY KEY,
			name TEXT NOT NULL,
			domain TEXT UNIQUE NOT NULL,
			provenance VARCHAR(20) NOT NULL,
			created_from_call_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_domain ON accounts(domain)`,
		// Transcripts carry their call metadata; identity is (platform, call_id)
		`CREATE TABLE IF NOT EXISTS transcripts (
			id SERIAL PRIMARY KEY,
			platform VARCHAR(32) NOT NULL,
			call_id TEXT NOT NULL,
			title TEXT,
			started_at TIMESTAMP NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			call_data JSONB NOT NULL,
			segments JSONB NOT NULL,
			full_text TEXT NOT NULL,
			ai_content JSONB,
			account_id VARCHAR(36) REFERENCES accounts(id),
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			rule_name TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (platform, call_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_account_id ON transcripts(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_started_at ON transcripts(started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS reassociation_audit (
			id VARCHAR(36) PRIMARY KEY,
			transcript_id INTEGER NOT NULL REFERENCES transcripts(id),
			old_account_id VARCHAR(36),
			new_account_id VARCHAR(36) NOT NULL,
			reason TEXT,
			actor TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reassociation_audit_transcript ON reassociation_audit(transcript_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
