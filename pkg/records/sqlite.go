package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"logbook-hq/relay/pkg/classify"
	"logbook-hq/relay/pkg/config"
)

// Supported database/sql driver names.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// zstd codecs are shared; both are safe for concurrent EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("records: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("records: zstd decoder initialization failed: " + err.Error())
	}
}

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config config.SQLiteConfig
	insert *sql.Stmt
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database described by cfg
// and initializes its schema.
func NewSQLiteStore(cfg config.SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMattn
	}
	if cfg.MaxOpenConns < 1 {
		cfg.MaxOpenConns = config.DefaultSQLiteMaxOpenConns
	}

	logger := slog.Default().With("component", "records.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "open", err)
		}
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite record store initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"store_raw", cfg.StoreRaw,
	)
	return s, nil
}

// buildDSN encodes the per-connection pragmas in the form each driver
// understands.
func buildDSN(cfg config.SQLiteConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch cfg.Driver {
	case DriverMattn:
		params.Set("_busy_timeout", fmt.Sprint(busy))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	case DriverModernc:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}

	return "file:" + cfg.Path + "?" + params.Encode(), nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO records (
			id, exchange_id, kind,
			host, method, uri, captured_at,
			request, payload, digest,
			raw_request, raw_response
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return NewStorageError("sqlite", "prepare", err)
	}
	s.insert = stmt
	return nil
}

// Enqueue implements Queue.
func (s *SQLiteStore) Enqueue(ctx context.Context, rec *classify.Record) error {
	var request any
	if len(rec.Request) > 0 {
		data, err := json.Marshal(rec.Request)
		if err != nil {
			return NewStorageError("sqlite", "insert", err)
		}
		request = string(data)
	}

	var payload any
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}

	var rawRequest, rawResponse any
	if s.config.StoreRaw {
		if rec.RawRequest != nil {
			rawRequest = zstdEncoder.EncodeAll(rec.RawRequest, nil)
		}
		if rec.RawResponse != nil {
			rawResponse = zstdEncoder.EncodeAll(rec.RawResponse, nil)
		}
	}

	_, err := s.insert.ExecContext(ctx,
		rec.ID, rec.ExchangeID, string(rec.Kind),
		rec.Host, rec.Method, rec.URI, rec.CapturedAt.UnixNano(),
		request, payload, rec.Digest,
		rawRequest, rawResponse,
	)
	if err != nil {
		return NewStorageError("sqlite", "insert", err)
	}
	return nil
}

// List returns stored records matching f, oldest first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*classify.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Host != "" {
		where = append(where, "host = ?")
		args = append(args, f.Host)
	}
	if !f.Since.IsZero() {
		where = append(where, "captured_at >= ?")
		args = append(args, f.Since.UnixNano())
	}

	query := `SELECT id, exchange_id, kind, host, method, uri, captured_at,
		request, payload, digest, raw_request, raw_response FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []*classify.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (*classify.Record, error) {
	var (
		rec                     classify.Record
		kind                    string
		method, request         sql.NullString
		payload, digest         sql.NullString
		capturedAt              int64
		rawRequest, rawResponse []byte
	)

	err := rows.Scan(&rec.ID, &rec.ExchangeID, &kind, &rec.Host, &method, &rec.URI, &capturedAt,
		&request, &payload, &digest, &rawRequest, &rawResponse)
	if err != nil {
		return nil, err
	}

	rec.Kind = classify.Kind(kind)
	rec.Method = method.String
	rec.CapturedAt = time.Unix(0, capturedAt)
	rec.Digest = digest.String
	if payload.Valid {
		rec.Payload = json.RawMessage(payload.String)
	}
	if request.Valid {
		if err := json.Unmarshal([]byte(request.String), &rec.Request); err != nil {
			return nil, fmt.Errorf("failed to decode request fields of %s: %w", rec.ID, err)
		}
	}
	if rawRequest != nil {
		if rec.RawRequest, err = zstdDecoder.DecodeAll(rawRequest, nil); err != nil {
			return nil, fmt.Errorf("failed to decompress raw request of %s: %w", rec.ID, err)
		}
	}
	if rawResponse != nil {
		if rec.RawResponse, err = zstdDecoder.DecodeAll(rawResponse, nil); err != nil {
			return nil, fmt.Errorf("failed to decompress raw response of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Prune deletes records captured before olderThan, then the oldest records
// beyond maxRecords. Zero values disable either rule.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time, maxRecords int64) (int64, error) {
	var deleted int64

	if !olderThan.IsZero() {
		res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE captured_at < ?`, olderThan.UnixNano())
		if err != nil {
			return deleted, NewStorageError("sqlite", "prune", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if maxRecords > 0 {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM records WHERE seq NOT IN (SELECT seq FROM records ORDER BY seq DESC LIMIT ?)`,
			maxRecords)
		if err != nil {
			return deleted, NewStorageError("sqlite", "prune", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite record store closed")
	return nil
}
