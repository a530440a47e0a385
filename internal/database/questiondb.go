package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Dogebooch/DougHub-sub001/internal/extract"
	"github.com/Dogebooch/DougHub-sub001/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "doughub.db"

var (
	// ErrRecordNotFound is returned by Retrieve when no record has the id.
	ErrRecordNotFound = errors.New("question record not found")

	// ErrMissingID is returned by Store for a record without an id.
	ErrMissingID = errors.New("question record has no id")
)

// Adapter stores and retrieves question records. Both calls are synchronous;
// implementations must be safe for concurrent use with distinct ids.
type Adapter interface {
	Store(ctx context.Context, rec model.QuestionRecord) (string, error)
	Retrieve(ctx context.Context, id string) (model.QuestionRecord, error)
}

// QuestionDB provides SQLite-based storage for question records and
// validation results.
type QuestionDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

var _ Adapter = (*QuestionDB)(nil)

// Options configures QuestionDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a QuestionDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*QuestionDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; concurrent Store calls queue here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	qdb := &QuestionDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := qdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return qdb, nil
}

// Path returns the database file path.
func (qdb *QuestionDB) Path() string {
	return qdb.dbPath
}

// Close closes the database connection.
func (qdb *QuestionDB) Close() error {
	return qdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (qdb *QuestionDB) createTables() error {
	schema := `
	-- Question records, one row per fixture-derived id
	CREATE TABLE IF NOT EXISTS question_records (
		id TEXT PRIMARY KEY,
		fixture_id TEXT,
		context_html TEXT NOT NULL,
		stem_html TEXT NOT NULL,
		answer_choices TEXT NOT NULL,
		image_refs TEXT NOT NULL,
		metadata TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_fixture ON question_records(fixture_id);

	-- Validation runs store the full fixture result as JSON
	CREATE TABLE IF NOT EXISTS validation_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fixture_id TEXT NOT NULL,
		digest TEXT,
		outcome TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		result_json TEXT NOT NULL,
		stage_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_fixture ON validation_runs(fixture_id);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON validation_runs(timestamp);
	`

	_, err := qdb.db.ExecContext(context.Background(), schema)
	return err
}

// Store saves rec under rec.ID, replacing any previous version, and returns
// the id. The answer choices, image references and metadata are stored as
// JSON so optional fields survive the round trip unchanged.
func (qdb *QuestionDB) Store(ctx context.Context, rec model.QuestionRecord) (string, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return "", ErrMissingID
	}

	choicesJSON, err := json.Marshal(rec.AnswerChoices)
	if err != nil {
		return "", fmt.Errorf("failed to serialize answer choices: %w", err)
	}
	imagesJSON, err := json.Marshal(rec.ImageRefs)
	if err != nil {
		return "", fmt.Errorf("failed to serialize image refs: %w", err)
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := `
	INSERT INTO question_records (id, fixture_id, context_html, stem_html, answer_choices, image_refs, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		fixture_id = excluded.fixture_id,
		context_html = excluded.context_html,
		stem_html = excluded.stem_html,
		answer_choices = excluded.answer_choices,
		image_refs = excluded.image_refs,
		metadata = excluded.metadata,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err = qdb.db.ExecContext(ctx, query,
		rec.ID,
		rec.Metadata[extract.MetaFixture],
		rec.ContextHTML,
		rec.StemHTML,
		string(choicesJSON),
		string(imagesJSON),
		string(metadataJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store question record: %w", err)
	}

	return rec.ID, nil
}

// Retrieve loads the record stored under id. It returns ErrRecordNotFound
// when there is none.
func (qdb *QuestionDB) Retrieve(ctx context.Context, id string) (model.QuestionRecord, error) {
	query := `
	SELECT id, context_html, stem_html, answer_choices, image_refs, metadata
	FROM question_records
	WHERE id = ?
	`

	var rec model.QuestionRecord
	var choicesJSON, imagesJSON, metadataJSON string
	err := qdb.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.ContextHTML,
		&rec.StemHTML,
		&choicesJSON,
		&imagesJSON,
		&metadataJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.QuestionRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return model.QuestionRecord{}, fmt.Errorf("failed to get question record: %w", err)
	}

	if err := json.Unmarshal([]byte(choicesJSON), &rec.AnswerChoices); err != nil {
		return model.QuestionRecord{}, fmt.Errorf("failed to parse answer choices: %w", err)
	}
	if err := json.Unmarshal([]byte(imagesJSON), &rec.ImageRefs); err != nil {
		return model.QuestionRecord{}, fmt.Errorf("failed to parse image refs: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
		return model.QuestionRecord{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return rec, nil
}

// CountRecords returns the number of stored question records.
func (qdb *QuestionDB) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := qdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM question_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count question records: %w", err)
	}
	return n, nil
}

// SaveFixtureResult appends a validation run for result.FixtureID.
func (qdb *QuestionDB) SaveFixtureResult(ctx context.Context, result *model.FixtureResult) error {
	if result == nil {
		return errors.New("fixture result is nil")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize fixture result: %w", err)
	}

	stageSummary := make(map[string]string, len(result.Report))
	for id, res := range result.Report {
		stageSummary[string(id)] = string(res.Status)
	}
	summaryJSON, _ := json.Marshal(stageSummary) //nolint:errcheck,errchkjson // a string map always marshals

	query := `
	INSERT INTO validation_runs (fixture_id, digest, outcome, result_json, stage_summary)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = qdb.db.ExecContext(ctx, query,
		result.FixtureID,
		result.Digest,
		string(result.Outcome),
		string(resultJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save fixture result: %w", err)
	}

	return nil
}

// LatestFixtureResult returns the most recent validation run for a fixture,
// or nil when the fixture has never been validated.
func (qdb *QuestionDB) LatestFixtureResult(ctx context.Context, fixtureID string) (*model.FixtureResult, error) {
	query := `
	SELECT result_json FROM validation_runs
	WHERE fixture_id = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var resultJSON string
	err := qdb.db.QueryRowContext(ctx, query, fixtureID).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture result: %w", err)
	}

	var result model.FixtureResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse fixture result: %w", err)
	}

	return &result, nil
}

// ListFixtures returns the ids of all fixtures with at least one run.
func (qdb *QuestionDB) ListFixtures(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT fixture_id FROM validation_runs
	ORDER BY fixture_id
	`

	rows, err := qdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fixture id: %w", err)
		}
		fixtures = append(fixtures, id)
	}

	return fixtures, rows.Err()
}

// RunMetadata summarizes one validation run without loading the full result.
type RunMetadata struct {
	// ID is the run's database id.
	ID int64

	// FixtureID is the validated fixture.
	FixtureID string

	// Digest is the fixture digest computed during the run.
	Digest string

	// Outcome is the run's verdict.
	Outcome model.Outcome

	// Timestamp is when the run was saved.
	Timestamp time.Time

	// Stages maps stage ids to their status.
	Stages map[string]string
}

// FixtureHistory returns run metadata for a fixture, newest first.
func (qdb *QuestionDB) FixtureHistory(ctx context.Context, fixtureID string) ([]RunMetadata, error) {
	query := `
	SELECT id, fixture_id, digest, outcome, timestamp, stage_summary
	FROM validation_runs
	WHERE fixture_id = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := qdb.db.QueryContext(ctx, query, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta        RunMetadata
			digest      sql.NullString
			outcome     string
			timestamp   string
			summaryJSON sql.NullString
		)

		if err := rows.Scan(&meta.ID, &meta.FixtureID, &digest, &outcome, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Digest = digest.String
		meta.Outcome = model.Outcome(outcome)
		meta.Timestamp = parseTimestamp(timestamp)

		meta.Stages = make(map[string]string)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Stages); err != nil {
				meta.Stages = make(map[string]string)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses a timestamp in any of timestampFormats and returns
// the zero time when none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
