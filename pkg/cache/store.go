package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"

	"github.com/slatevm/slate/pkg/bytecode"
)

// cborEncMode uses canonical encoding so equal programs always produce
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Store persists compiled programs in SQLite, keyed by the SHA-256 of
// their source text. The daemon warms its shared cache from the store at
// startup and writes through on every compilation, so programs survive
// daemon restarts.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the program store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening program store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash    TEXT PRIMARY KEY,
		source  TEXT NOT NULL,
		program BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// sourceKey returns the hex SHA-256 of the source text.
func sourceKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Put stores (or replaces) the compiled program for source.
func (s *Store) Put(source string, program *bytecode.Program) error {
	blob, err := cborEncMode.Marshal(program)
	if err != nil {
		return fmt.Errorf("cache: marshal program: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO programs (hash, source, program) VALUES (?, ?, ?)`,
		sourceKey(source), source, blob,
	)
	if err != nil {
		return fmt.Errorf("cache: store program: %w", err)
	}
	return nil
}

// Get loads the compiled program for source, if present. Loaded programs
// are validated before being returned; a corrupt row is an error, not a
// silent miss.
func (s *Store) Get(source string) (*bytecode.Program, bool, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT program FROM programs WHERE hash = ?`, sourceKey(source)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: load program: %w", err)
	}

	var p bytecode.Program
	if err := cbor.Unmarshal(blob, &p); err != nil {
		return nil, false, fmt.Errorf("cache: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, false, fmt.Errorf("cache: stored program invalid: %w", err)
	}
	return &p, true, nil
}

// Len returns the number of stored programs.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM programs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count programs: %w", err)
	}
	return n, nil
}

// Warm loads up to limit stored programs into the shared cache. Programs
// that fail validation are skipped, not fatal: the store may predate a
// bytecode format change.
func (s *Store) Warm(dst *SharedCache, limit int) (int, error) {
	rows, err := s.db.Query(`SELECT source, program FROM programs LIMIT ?`, limit)
	if err != nil {
		return 0, fmt.Errorf("cache: warm query: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var source string
		var blob []byte
		if err := rows.Scan(&source, &blob); err != nil {
			return loaded, fmt.Errorf("cache: warm scan: %w", err)
		}
		var p bytecode.Program
		if err := cbor.Unmarshal(blob, &p); err != nil {
			continue
		}
		if err := p.Validate(); err != nil {
			continue
		}
		dst.Insert(source, &p)
		loaded++
	}
	return loaded, rows.Err()
}
