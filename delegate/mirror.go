package delegate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type (
	// Profile is the local cache row keyed by the delegate's user id.
	// Consistency with the delegate's own record is eventual and not
	// enforced beyond the journal replay.
	Profile struct {
		ID        string
		Email     string
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	ProfileStore struct {
		db *sql.DB
	}
)

// OpenProfileStore loads (creating if needed) the profile mirror at the
// given file path.
func OpenProfileStore(ctx context.Context, file string) (*ProfileStore, error) {
	connstr := fmt.Sprintf("file:%v?_journal=wal&mode=rwc", file)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", file, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping profile store %v, cause %v", file, err)
	}
	s := &ProfileStore{db: conn}
	if err := s.init(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init profile store %v, cause %v", file, err)
	}
	return s, nil
}

func (s *ProfileStore) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `create table if not exists profiles(
		profile_id text primary key,
		email text not null,
		name text not null,
		created_at timestamp not null,
		updated_at timestamp not null
	)`)
	if err != nil {
		return fmt.Errorf("unable to create profiles table, cause %w", err)
	}
	_, err = s.db.ExecContext(ctx, `create table if not exists mirror_journal(
		journal_id integer primary key autoincrement,
		profile_id text not null,
		email text not null,
		name text not null,
		recorded_at timestamp not null,
		replayed_at timestamp
	)`)
	if err != nil {
		return fmt.Errorf("unable to create mirror_journal table, cause %w", err)
	}
	return nil
}

// Upsert writes the profile row, replacing any previous mirror of the same
// external id.
func (s *ProfileStore) Upsert(ctx context.Context, p Profile) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `insert into profiles(profile_id, email, name, created_at, updated_at)
		values (?, ?, ?, ?, ?)
		on conflict(profile_id) do update set email = excluded.email, name = excluded.name, updated_at = excluded.updated_at`,
		p.ID, p.Email, p.Name, now, now)
	if err != nil {
		return fmt.Errorf("unable to mirror profile %v, cause %w", p.ID, err)
	}
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `select profile_id, email, name, created_at, updated_at
		from profiles where profile_id = ?`, id).
		Scan(&p.ID, &p.Email, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("unable to load profile %v, cause %w", id, err)
	}
	return p, nil
}

// Journal records a profile whose mirror write failed, so a later
// reconcile pass can repair the local side. The identity already exists
// upstream at this point, losing the row here would leave it invisible.
func (s *ProfileStore) Journal(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `insert into mirror_journal(profile_id, email, name, recorded_at)
		values (?, ?, ?, ?)`, p.ID, p.Email, p.Name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("unable to journal profile %v, cause %w", p.ID, err)
	}
	return nil
}

// ReplayJournal upserts every pending journal entry and marks it replayed.
// Returns how many entries were repaired.
func (s *ProfileStore) ReplayJournal(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `select journal_id, profile_id, email, name
		from mirror_journal where replayed_at is null order by journal_id asc`)
	if err != nil {
		return 0, fmt.Errorf("unable to read mirror journal, cause %w", err)
	}
	type entry struct {
		id      int64
		profile Profile
	}
	var pending []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.profile.ID, &e.profile.Email, &e.profile.Name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("unable to scan mirror journal row, cause %v", err)
		}
		pending = append(pending, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("unable to read mirror journal, cause %w", err)
	}
	var replayed int
	for _, e := range pending {
		if err := s.Upsert(ctx, e.profile); err != nil {
			return replayed, err
		}
		_, err := s.db.ExecContext(ctx, `update mirror_journal set replayed_at = ? where journal_id = ?`,
			time.Now().UTC(), e.id)
		if err != nil {
			return replayed, fmt.Errorf("unable to mark journal entry %v, cause %w", e.id, err)
		}
		replayed++
	}
	return replayed, nil
}

func (s *ProfileStore) Close() error {
	return s.db.Close()
}
