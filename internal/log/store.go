package log

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver.
)

const defaultMaxEntries = 100_000

// Store persists a Logger's entries to a sqlite3 database, following the
// teacher's own `create table logs (...)` + `database/sql` idiom rather
// than introducing a second storage engine for the same rows.
type Store struct {
	dbPath     string
	maxEntries int

	db *sql.DB
	wg *sync.WaitGroup

	saveWG sync.WaitGroup
}

// NewStore returns a Store. Call Init before SaveEntries.
func NewStore(dbPath string, wg *sync.WaitGroup) *Store {
	return &Store{
		dbPath:     dbPath,
		maxEntries: defaultMaxEntries,
		wg:         wg,
	}
}

// Init opens (creating if needed) the sqlite3 database and its logs table.
func (s *Store) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open log store: %w", err)
	}

	const schema = `create table if not exists logs (
		id INTEGER primary key autoincrement,
		time INTEGER not null,
		level INTEGER not null,
		component TEXT not null,
		service_id TEXT,
		msg TEXT not null
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("create logs table: %w", err)
	}
	s.db = db

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.saveWG.Wait()
		db.Close()
	}()
	return nil
}

// SaveEntries subscribes to logger and persists every entry until ctx is done.
func (s *Store) SaveEntries(ctx context.Context, logger *Logger) {
	feed, cancel := logger.Subscribe()
	defer cancel()

	s.saveWG.Add(1)
	defer s.saveWG.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-feed:
			if !ok {
				return
			}
			if err := s.save(entry); err != nil {
				fmt.Printf("log store: could not save entry %q: %v\n", entry.Msg, err)
			}
		}
	}
}

func (s *Store) save(entry Entry) error {
	var count int
	if err := s.db.QueryRow("select count(*) from logs").Scan(&count); err != nil {
		return fmt.Errorf("count logs: %w", err)
	}
	if count >= s.maxEntries {
		if _, err := s.db.Exec("delete from logs where id = (select min(id) from logs)"); err != nil {
			return fmt.Errorf("evict oldest log: %w", err)
		}
	}

	_, err := s.db.Exec(
		"insert into logs (time, level, component, service_id, msg) values (?, ?, ?, ?, ?)",
		int64(entry.Time), int(entry.Level), entry.Component, entry.ServiceID, entry.Msg,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// Query describes a search over stored entries.
type Query struct {
	Levels     []Level
	Components []string
	Since      UnixMillisecond
	Limit      int
}

// Query returns entries matching q, most recent first.
func (s *Store) Query(q Query) ([]Entry, error) {
	limit := q.Limit
	if limit == 0 {
		limit = defaultMaxEntries
	}

	var where []string
	var args []interface{}

	if len(q.Levels) > 0 {
		placeholders := make([]string, len(q.Levels))
		for i, l := range q.Levels {
			placeholders[i] = "?"
			args = append(args, int(l))
		}
		where = append(where, "level in ("+strings.Join(placeholders, ",")+")")
	}
	if len(q.Components) > 0 {
		placeholders := make([]string, len(q.Components))
		for i, c := range q.Components {
			placeholders[i] = "?"
			args = append(args, c)
		}
		where = append(where, "component in ("+strings.Join(placeholders, ",")+")")
	}
	if q.Since != 0 {
		where = append(where, "time >= ?")
		args = append(args, int64(q.Since))
	}

	query := "select time, level, component, service_id, msg from logs"
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by id desc limit ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var level int
		var serviceID sql.NullString
		if err := rows.Scan(&e.Time, &level, &e.Component, &serviceID, &e.Msg); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		e.Level = Level(level)
		e.ServiceID = serviceID.String
		out = append(out, e)
	}
	return out, rows.Err()
}
