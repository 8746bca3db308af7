package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/pairtalk/internal/domain"
)

const pairColumns = `p.pair_id, p.version, p.position, p.participant_a, p.participant_b, p.topic, p.language, p.created_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS roster (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS roster_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			uploaded_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pairings (
			version INTEGER PRIMARY KEY AUTOINCREMENT,
			shared_topic TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			unpaired TEXT,
			generated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pairs (
			pair_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			position INTEGER NOT NULL,
			participant_a TEXT NOT NULL,
			participant_b TEXT NOT NULL,
			topic TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (version) REFERENCES pairings(version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pairs_version ON pairs(version, position)`,
		// One row per participant and version: a name can belong to one pair only.
		`CREATE TABLE IF NOT EXISTS pair_members (
			version INTEGER NOT NULL,
			participant TEXT NOT NULL,
			pair_id TEXT NOT NULL,
			PRIMARY KEY (version, participant),
			FOREIGN KEY (pair_id) REFERENCES pairs(pair_id)
		)`,
		`CREATE TABLE IF NOT EXISTS pairing_current (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceRoster discards the stored roster and writes names in order.
func (s *SQLiteStore) ReplaceRoster(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("replace roster", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM roster`); err != nil {
		return domain.NewStorageError("replace roster", err)
	}
	for i, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roster (position, name) VALUES (?, ?)`, i, name); err != nil {
			return domain.NewStorageError("replace roster", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roster_meta (id, uploaded_at) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET uploaded_at = excluded.uploaded_at`, time.Now()); err != nil {
		return domain.NewStorageError("replace roster", err)
	}
	return domain.NewStorageError("replace roster", tx.Commit())
}

// GetRoster returns the roster in upload order.
func (s *SQLiteStore) GetRoster(ctx context.Context) ([]string, error) {
	var uploaded int
	if err := s.db.GetContext(ctx, &uploaded, `SELECT COUNT(*) FROM roster_meta`); err != nil {
		return nil, domain.NewStorageError("get roster", err)
	}
	if uploaded == 0 {
		return nil, domain.ErrMissingRoster
	}

	names := []string{}
	if err := s.db.SelectContext(ctx, &names, `SELECT name FROM roster ORDER BY position`); err != nil {
		return nil, domain.NewStorageError("get roster", err)
	}
	return names, nil
}

// ReplacePairing writes a new pairing version and makes it the visible one in
// a single transaction, so readers see either the old or the new pairing.
func (s *SQLiteStore) ReplacePairing(ctx context.Context, pairing *domain.Pairing) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("replace pairing", err)
	}
	defer tx.Rollback()

	now := time.Now()
	generatedAt := pairing.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = now
	}
	unpaired, _ := json.Marshal(pairing.Unpaired)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO pairings (shared_topic, language, unpaired, generated_at) VALUES (?, ?, ?, ?)`,
		pairing.SharedTopic, pairing.Language, string(unpaired), generatedAt)
	if err != nil {
		return domain.NewStorageError("replace pairing", err)
	}
	version, err := res.LastInsertId()
	if err != nil {
		return domain.NewStorageError("replace pairing", err)
	}

	if err := preparePairing(pairing, version, now); err != nil {
		return err
	}
	pairing.GeneratedAt = generatedAt

	for _, p := range pairing.Pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pairs (pair_id, version, position, participant_a, participant_b, topic, language, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.PairID, p.Version, p.Position, p.ParticipantA, p.ParticipantB, p.Topic, p.Language, p.CreatedAt); err != nil {
			return domain.NewStorageError("replace pairing", err)
		}
		for _, name := range p.Members() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pair_members (version, participant, pair_id) VALUES (?, ?, ?)`,
				p.Version, name, p.PairID); err != nil {
				return domain.NewStorageError("replace pairing", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pairing_current (id, version) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version`, version); err != nil {
		return domain.NewStorageError("replace pairing", err)
	}
	if err := s.dropVersionsExcept(ctx, tx, version); err != nil {
		return domain.NewStorageError("replace pairing", err)
	}

	return domain.NewStorageError("replace pairing", tx.Commit())
}

func (s *SQLiteStore) dropVersionsExcept(ctx context.Context, tx *sqlx.Tx, version int64) error {
	for _, q := range []string{
		`DELETE FROM pair_members WHERE version <> ?`,
		`DELETE FROM pairs WHERE version <> ?`,
		`DELETE FROM pairings WHERE version <> ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, version); err != nil {
			return err
		}
	}
	return nil
}

type pairingRow struct {
	Version     int64          `db:"version"`
	SharedTopic string         `db:"shared_topic"`
	Language    string         `db:"language"`
	Unpaired    sql.NullString `db:"unpaired"`
	GeneratedAt time.Time      `db:"generated_at"`
}

// GetPairing returns the visible pairing, or nil if none was generated.
func (s *SQLiteStore) GetPairing(ctx context.Context) (*domain.Pairing, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("get pairing", err)
	}
	defer tx.Rollback()

	var row pairingRow
	err = tx.GetContext(ctx, &row,
		`SELECT g.version, g.shared_topic, g.language, g.unpaired, g.generated_at
		 FROM pairings g JOIN pairing_current c ON g.version = c.version`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("get pairing", err)
	}

	pairs := []domain.Pair{}
	if err := tx.SelectContext(ctx, &pairs,
		`SELECT `+pairColumns+` FROM pairs p WHERE p.version = ? ORDER BY p.position`, row.Version); err != nil {
		return nil, domain.NewStorageError("get pairing", err)
	}

	pairing := &domain.Pairing{
		Version:     row.Version,
		Pairs:       pairs,
		SharedTopic: row.SharedTopic,
		Language:    row.Language,
		GeneratedAt: row.GeneratedAt,
	}
	if row.Unpaired.Valid && row.Unpaired.String != "" {
		_ = json.Unmarshal([]byte(row.Unpaired.String), &pairing.Unpaired)
	}
	return pairing, nil
}

// ListPairs returns the pairs of the visible pairing in generation order.
func (s *SQLiteStore) ListPairs(ctx context.Context) ([]domain.Pair, error) {
	pairs := []domain.Pair{}
	err := s.db.SelectContext(ctx, &pairs,
		`SELECT `+pairColumns+` FROM pairs p JOIN pairing_current c ON p.version = c.version ORDER BY p.position`)
	if err != nil {
		return nil, domain.NewStorageError("list pairs", err)
	}
	return pairs, nil
}

// GetPair retrieves a visible pair by id.
func (s *SQLiteStore) GetPair(ctx context.Context, pairID string) (*domain.Pair, error) {
	var pair domain.Pair
	err := s.db.GetContext(ctx, &pair,
		`SELECT `+pairColumns+` FROM pairs p JOIN pairing_current c ON p.version = c.version WHERE p.pair_id = ?`, pairID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPairNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get pair", err)
	}
	return &pair, nil
}

// FindPairByParticipant looks the name up in the membership index.
func (s *SQLiteStore) FindPairByParticipant(ctx context.Context, name string) (*domain.Pair, error) {
	var pair domain.Pair
	err := s.db.GetContext(ctx, &pair,
		`SELECT `+pairColumns+`
		 FROM pair_members m
		 JOIN pairing_current c ON m.version = c.version
		 JOIN pairs p ON p.pair_id = m.pair_id
		 WHERE m.participant = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnassignedParticipant
	}
	if err != nil {
		return nil, domain.NewStorageError("find pair", err)
	}
	return &pair, nil
}

// UpdatePairTopic changes the topic of a visible pair.
func (s *SQLiteStore) UpdatePairTopic(ctx context.Context, pairID, topic string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pairs SET topic = ?
		 WHERE pair_id = ? AND version = (SELECT version FROM pairing_current WHERE id = 1)`, topic, pairID)
	if err != nil {
		return domain.NewStorageError("update topic", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("update topic", err)
	}
	if n == 0 {
		return domain.ErrPairNotFound
	}
	return nil
}

// DeleteAllPairs removes every pairing version.
func (s *SQLiteStore) DeleteAllPairs(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("delete pairs", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM pairing_current`,
		`DELETE FROM pair_members`,
		`DELETE FROM pairs`,
		`DELETE FROM pairings`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return domain.NewStorageError("delete pairs", err)
		}
	}
	return domain.NewStorageError("delete pairs", tx.Commit())
}

// GetSettings returns the saved settings, or nil if none were saved.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT data FROM settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("get settings", err)
	}
	var settings domain.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings stores the settings, replacing any previous ones.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	return domain.NewStorageError("save settings", err)
}
