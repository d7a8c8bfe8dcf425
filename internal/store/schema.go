package store

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id            BIGSERIAL PRIMARY KEY,
		uin           TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		is_registered BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id           BIGSERIAL PRIMARY KEY,
		session_date DATE NOT NULL,
		is_test      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions (session_date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_regular_session_date ON sessions (session_date) WHERE is_test = FALSE`,
	`CREATE TABLE IF NOT EXISTS session_tokens (
		id         BIGSERIAL PRIMARY KEY,
		session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		token      CHAR(6) NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_tokens_lookup ON session_tokens (session_id, token)`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id         BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		marked_at  TIMESTAMPTZ NOT NULL,
		CONSTRAINT unique_student_session UNIQUE (student_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendances_session ON attendances (session_id)`,
	`CREATE TABLE IF NOT EXISTS admin_settings (
		id                        INTEGER PRIMARY KEY CHECK (id = 1),
		disable_time_restrictions BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at                TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		uin           TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		is_registered BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_date DATE NOT NULL,
		is_test      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions (session_date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_regular_session_date ON sessions (session_date) WHERE is_test = FALSE`,
	`CREATE TABLE IF NOT EXISTS session_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		token      TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_tokens_lookup ON session_tokens (session_id, token)`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		marked_at  DATETIME NOT NULL,
		CONSTRAINT unique_student_session UNIQUE (student_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendances_session ON attendances (session_id)`,
	`CREATE TABLE IF NOT EXISTS admin_settings (
		id                        INTEGER PRIMARY KEY CHECK (id = 1),
		disable_time_restrictions BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at                DATETIME NOT NULL
	)`,
}
