// Package userstore keeps user credentials in a single-file sqlite database.
//
// The store owns the only table of the local auth path and is handed to
// whoever needs it (http handlers, cli commands) instead of living in a
// package-level variable, so the process that opened it is also the one
// responsible for closing it.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mattn/go-sqlite3"
)

type (
	Store struct {
		db *sql.DB
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		Name         string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

func openUserDatabase(ctx context.Context, file string) (*sql.DB, error) {
	connstr := fmt.Sprintf("file:%v?_journal=wal&_foreign_keys=on&mode=rwc", file)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to ping user database %v, cause %v", file, err)
	}
	return conn, nil
}

// Open loads (creating if needed) the user database at the given file path.
func Open(ctx context.Context, file string) (*Store, error) {
	conn, err := openUserDatabase(ctx, file)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn}
	if err := s.init(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init user database %v, cause %v", file, err)
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `create table if not exists users(
		user_id integer primary key autoincrement,
		email text not null unique,
		email_hash64 integer not null,
		password text not null,
		name text not null,
		created_at timestamp not null,
		updated_at timestamp not null
	)`)
	if err != nil {
		return fmt.Errorf("unable to create users table, cause %w", err)
	}
	_, err = s.db.ExecContext(ctx, `create index if not exists idx_users_email_hash64 on users(email_hash64)`)
	if err != nil {
		return fmt.Errorf("unable to index users table, cause %w", err)
	}
	return nil
}

// normalizeEmail lowercases and trims the address, and returns the
// hash used for indexed lookups. int64 instead of uint64 because sqlite
// integers are signed.
func normalizeEmail(email string) (string, int64) {
	email = strings.ToLower(strings.TrimSpace(email))
	return email, int64(xxhash.Sum64String(email))
}

// Create inserts a new user row. The caller must hash the password first,
// plaintext never reaches this layer.
func (s *Store) Create(ctx context.Context, email, passwordHash, name string) (User, error) {
	email, emailHash := normalizeEmail(email)
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `insert into users(email, email_hash64, password, name, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?)`, email, emailHash, passwordHash, name, now, now)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return User{}, DuplicateEmail{Email: email}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to create user %v, cause %w", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("unable to read id of user %v, cause %w", email, err)
	}
	return User{ID: id, Email: email, PasswordHash: passwordHash, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// FindByEmail returns the full row, password hash included, since the
// login flow needs it for verification.
func (s *Store) FindByEmail(ctx context.Context, email string) (User, error) {
	email, emailHash := normalizeEmail(email)
	var u User
	err := s.db.QueryRowContext(ctx, `select user_id, email, password, name, created_at, updated_at
		from users where email_hash64 = ? and email = ?`, emailHash, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, UserNotFound{Email: email}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to load user %v, cause %w", email, err)
	}
	return u, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select user_id, email, password, name, created_at, updated_at
		from users where user_id = ?`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, UserNotFound{ID: id}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to load user #%v, cause %w", id, err)
	}
	return u, nil
}

// ForEach walks all users ordered by id. Used by the mirror migration.
func (s *Store) ForEach(ctx context.Context, fn func(User) error) error {
	rows, err := s.db.QueryContext(ctx, `select user_id, email, password, name, created_at, updated_at
		from users order by user_id asc`)
	if err != nil {
		return fmt.Errorf("unable to list users, cause %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u User
		err = rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("unable to scan user row, cause %v", err)
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
