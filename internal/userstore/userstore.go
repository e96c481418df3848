// Package userstore implements the persistent (username, hash, salt)
// table consulted during authentication (§4.7). It is backed by a
// single SQLite file, with statements built through squirrel and
// guarded by a circuit breaker so a wedged database fails fast instead
// of blocking every connection's <auth> handler.
package userstore

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Rounds = 5000
	pbkdf2KeyLen = 64
	saltLen      = 16
)

// RegisterResult reports the outcome of RegisterUser.
type RegisterResult int

const (
	Registered RegisterResult = iota
	AlreadyExists
	Failed
)

// Store is the salted-hash user database.
type Store struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	breaker *gobreaker.CircuitBreaker
}

// Open opens (creating if necessary) the SQLite-backed user database
// at path, auto-creating parent directories. Open failures are fatal
// to startup per §4.7's failure model.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "userstore: mkdir")
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "userstore: open")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		hash     BLOB NOT NULL,
		salt     BLOB NOT NULL,
		UNIQUE(username)
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "userstore: create table")
	}
	st := gobreaker.Settings{
		Name:        "userstore-db",
		MaxRequests: 1,
	}
	return &Store{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
		breaker: gobreaker.NewCircuitBreaker(st),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RegisterUser derives a salted PBKDF2-HMAC-SHA512 hash for password
// and inserts the (username, hash, salt) row. Returns AlreadyExists if
// the UNIQUE constraint rejects a duplicate username, leaving the
// original record intact.
func (s *Store) RegisterUser(username, password string) (RegisterResult, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Failed, errors.Wrap(err, "userstore: salt")
	}
	hash := derive(password, salt)

	q, args, err := s.sb.
		Insert("users").
		Columns("username", "hash", "salt").
		Values(username, hash, salt).
		ToSql()
	if err != nil {
		return Failed, errors.Wrap(err, "userstore: build insert")
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return s.db.Exec(q, args...)
	})
	if err != nil {
		if isUniqueConstraintErr(err) {
			return AlreadyExists, nil
		}
		return Failed, errors.Wrap(err, "userstore: insert")
	}
	return Registered, nil
}

// IsRegistered reports whether username has a row in the store.
func (s *Store) IsRegistered(username string) (bool, error) {
	q, args, err := s.sb.
		Select("1").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "userstore: build select")
	}
	v, err := s.breaker.Execute(func() (interface{}, error) {
		var exists int
		row := s.db.QueryRow(q, args...)
		if err := row.Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, errors.Wrap(err, "userstore: select")
	}
	return v.(bool), nil
}

// VerifyPassword recomputes the PBKDF2 digest from the stored salt and
// reports whether it matches, comparing under constant time.
func (s *Store) VerifyPassword(username, password string) (bool, error) {
	q, args, err := s.sb.
		Select("hash", "salt").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "userstore: build select")
	}
	v, err := s.breaker.Execute(func() (interface{}, error) {
		var hash, salt []byte
		row := s.db.QueryRow(q, args...)
		if err := row.Scan(&hash, &salt); err != nil {
			if err == sql.ErrNoRows {
				return false, nil
			}
			return false, err
		}
		want := derive(password, salt)
		return subtle.ConstantTimeCompare(want, hash) == 1, nil
	})
	if err != nil {
		return false, errors.Wrap(err, "userstore: verify")
	}
	return v.(bool), nil
}

func derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Rounds, pbkdf2KeyLen, sha512.New)
}

func isUniqueConstraintErr(err error) bool {
	// mattn/go-sqlite3 reports constraint violations through
	// sqlite3.Error; matching on the message text keeps this check free
	// of a type assertion on that driver type.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
