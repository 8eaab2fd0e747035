package records

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the record database schema.
// Timestamps are stored as Unix nanoseconds so both drivers read them back
// identically.
const Schema = `
-- Published records, in enqueue order
CREATE TABLE IF NOT EXISTS records (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    exchange_id TEXT NOT NULL,
    kind TEXT NOT NULL,

    -- Origin
    host TEXT NOT NULL,
    method TEXT,
    uri TEXT NOT NULL,
    captured_at INTEGER NOT NULL,

    -- Content
    request TEXT,
    payload TEXT,
    digest TEXT,

    -- zstd-compressed bodies, present only when raw storage is enabled
    raw_request BLOB,
    raw_response BLOB
);

CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
CREATE INDEX IF NOT EXISTS idx_records_host ON records(host);
CREATE INDEX IF NOT EXISTS idx_records_captured_at ON records(captured_at);
CREATE INDEX IF NOT EXISTS idx_records_digest ON records(digest);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the schema version if it is not present.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`

// GetSchemaVersion returns the highest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`
