package database

// schema is applied in one transaction when a database is opened.
var schema = []string{
	// Registered profiles; list-valued attributes are JSON arrays validated on read and write
	`CREATE TABLE IF NOT EXISTS profiles (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        first_name TEXT NOT NULL DEFAULT '',
        last_name TEXT NOT NULL DEFAULT '',
        place_of_birth TEXT,
        date_of_birth TEXT,
        languages TEXT NOT NULL DEFAULT '[]',
        family_members TEXT NOT NULL DEFAULT '[]',
        face_descriptor BLOB,
        voice_print BLOB,
        last_known_location TEXT,
        registered_at DATETIME DEFAULT CURRENT_TIMESTAMP
    )`,

	// One row per unordered pair; user_a is always the smaller id
	`CREATE TABLE IF NOT EXISTS connections (
        user_a INTEGER NOT NULL,
        user_b INTEGER NOT NULL,
        facial_score REAL NOT NULL DEFAULT 0,
        voice_score REAL NOT NULL DEFAULT 0,
        info_score REAL NOT NULL DEFAULT 0,
        overall_score REAL NOT NULL,
        confidence TEXT NOT NULL,
        computed_at TEXT NOT NULL,
        connection_type TEXT NOT NULL DEFAULT 'potential',
        predicted_relationship TEXT,
        updated_at TEXT NOT NULL,
        PRIMARY KEY (user_a, user_b),
        CHECK (user_a < user_b),
        CHECK (connection_type IN ('potential', 'verified', 'rejected'))
    )`,

	`CREATE INDEX IF NOT EXISTS idx_profiles_name ON profiles(first_name, last_name)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_user_a ON connections(user_a, overall_score)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_user_b ON connections(user_b, overall_score)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_score ON connections(overall_score)`,
}
