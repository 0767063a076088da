package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrClosed is returned by Storage methods when the storage has been closed.
	ErrClosed = errors.New("storage is closed")
	// ErrNotFound is returned when the requested variable or block doesn't exist.
	ErrNotFound = errors.New("not found")
)

const (
	memory = ":memory:"
)

// Storage is a persistent variable and block storage backed by SQLite.
//
// A variable is written in three steps: [Storage.CreateVariable], any number of
// [Storage.PutBlock] and [Storage.CompleteVariable] or [Storage.ReplaceVariable]. Until the last
// step the variable is invisible to readers, and incomplete variables are removed when the
// storage is opened again.
type Storage struct {
	cfg *Config
	db  *sql.DB
}

// New creates a new Storage with the provided configuration functions.
//
// Default configuration:
//   - File: ":memory:" (in-memory database)
//   - Workers: 1
//   - Durable: false
//
// Returns an error if the SQLite database cannot be opened or initialized.
func New(configFuncs ...ConfigFunc) (*Storage, error) {
	cfg := &Config{}
	cfg.File(memory)
	cfg.Workers(1)
	for _, cf := range configFuncs {
		cf(cfg)
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := setup(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}

	storage := Storage{
		cfg: cfg,
		db:  db,
	}

	return &storage, nil
}

// CreateVariable inserts an incomplete variable. Blocks can be added to it afterwards.
//
// Returns [ErrClosed] if the storage has been closed.
func (s *Storage) CreateVariable(v Variable) error {
	_, err := s.db.Exec(
		`
		insert into variable (
			name,
			dims,
			attrs,
			encoding,
			dtype,
			shape,
			codec,
			blocks,
			complete,
			stored_at
		) values (
			:name,
			:dims,
			:attrs,
			:encoding,
			:dtype,
			:shape,
			:codec,
			0,
			0,
			:stored_at
		)
		`,
		sql.Named("name", v.Name),
		sql.Named("dims", v.Dims),
		sql.Named("attrs", v.Attrs),
		sql.Named("encoding", v.Encoding),
		sql.Named("dtype", v.DType),
		sql.Named("shape", v.Shape),
		sql.Named("codec", v.Codec),
		sql.Named("stored_at", toTimestamp(time.Now())),
	)
	return closed(err)
}

// PutBlock inserts a block of an incomplete variable.
func (s *Storage) PutBlock(b Block) error {
	_, err := s.db.Exec(
		`
		insert into block (
			variable,
			idx,
			rows,
			data,
			checksum
		) values (
			:variable,
			:idx,
			:rows,
			:data,
			:checksum
		)
		`,
		sql.Named("variable", b.Variable),
		sql.Named("idx", b.Index),
		sql.Named("rows", b.Rows),
		sql.Named("data", b.Data),
		sql.Named("checksum", int64(b.Checksum)),
	)
	return closed(err)
}

// CompleteVariable makes a variable visible to readers.
func (s *Storage) CompleteVariable(name string) error {
	res, err := s.db.Exec(
		`
		update variable
		set
			complete = 1,
			blocks = (select count(*) from block where variable = :name)
		where
			name = :name
		`,
		sql.Named("name", name),
	)
	if err != nil {
		return closed(err)
	}
	return affected(res)
}

// ReplaceVariable completes the variable created as staging and renames it to name, removing
// any variable that had that name. Readers see either the old variable or the new one.
//
// Returns [ErrNotFound] if there is no variable named staging.
func (s *Storage) ReplaceVariable(staging, name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return closed(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`
		delete from variable
		where name = :name
		`,
		sql.Named("name", name),
	); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	res, err := tx.Exec(
		`
		update variable
		set
			name = :name,
			complete = 1,
			blocks = (select count(*) from block where variable = :staging)
		where
			name = :staging
		`,
		sql.Named("name", name),
		sql.Named("staging", staging),
	)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if err := affected(res); err != nil {
		return err
	}

	return tx.Commit()
}

// GetVariable returns a complete variable.
//
// Returns [ErrNotFound] if there is no such variable.
func (s *Storage) GetVariable(name string) (*Variable, error) {
	var (
		v        Variable
		storedAt int64
	)
	err := s.db.QueryRow(
		`
		select
			name,
			dims,
			attrs,
			encoding,
			dtype,
			shape,
			codec,
			blocks,
			stored_at
		from
			variable
		where
			name = :name and
			complete = 1
		`,
		sql.Named("name", name),
	).Scan(
		&v.Name,
		&v.Dims,
		&v.Attrs,
		&v.Encoding,
		&v.DType,
		&v.Shape,
		&v.Codec,
		&v.Blocks,
		&storedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, closed(err)
	}

	v.StoredAt = fromTimestamp(storedAt)

	return &v, nil
}

// BlockRows returns the number of rows of every block of a variable, in order.
func (s *Storage) BlockRows(name string) ([]int, error) {
	rows, err := s.db.Query(
		`
		select rows from block
		where variable = :name
		order by idx asc
		`,
		sql.Named("name", name),
	)
	if err != nil {
		return nil, closed(err)
	}
	defer rows.Close()

	out := make([]int, 0)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return out, nil
}

// GetBlock returns a single block.
//
// Returns [ErrNotFound] if there is no such block.
func (s *Storage) GetBlock(name string, index int) (*Block, error) {
	var (
		b        Block
		checksum int64
	)
	err := s.db.QueryRow(
		`
		select
			variable,
			idx,
			rows,
			data,
			checksum
		from
			block
		where
			variable = :variable and
			idx = :idx
		`,
		sql.Named("variable", name),
		sql.Named("idx", index),
	).Scan(
		&b.Variable,
		&b.Index,
		&b.Rows,
		&b.Data,
		&checksum,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, closed(err)
	}

	b.Checksum = uint64(checksum)

	return &b, nil
}

// Names returns the names of all complete variables in lexical order.
func (s *Storage) Names() ([]string, error) {
	rows, err := s.db.Query(
		`
		select name from variable
		where complete = 1
		order by name asc
		`,
	)
	if err != nil {
		return nil, closed(err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return names, nil
}

// Delete permanently removes a variable, complete or not, with all its blocks.
//
// Returns [ErrNotFound] if there is no such variable.
func (s *Storage) Delete(name string) error {
	res, err := s.db.Exec(
		`
		delete from variable
		where name = :name
		`,
		sql.Named("name", name),
	)
	if err != nil {
		return closed(err)
	}
	return affected(res)
}

// Stats returns current storage statistics.
func (s *Storage) Stats() (*Stats, error) {
	var stats Stats
	err := s.db.QueryRow(
		`
		select
			(select count(*) from variable where complete = 1) as variables,
			coalesce(count(*), 0) as blocks,
			coalesce(sum(length(data)), 0) as bytes
		from
			block
		`,
	).Scan(
		&stats.Variables,
		&stats.Blocks,
		&stats.Bytes,
	)
	if err != nil {
		return nil, closed(err)
	}

	return &stats, nil
}

// Close closes the underlying SQLite database.
//
// After closing, all methods on Storage will return [ErrClosed].
func (s *Storage) Close() error {
	return s.db.Close()
}

// Variable is a stored variable. Dims, metadata and shape are JSON documents.
type Variable struct {
	Name     string
	Dims     string
	Attrs    string
	Encoding string
	DType    string
	Shape    string
	// Codec is the name of the codec the blocks were encoded with.
	Codec string
	// Blocks is the number of blocks of the variable.
	Blocks   int
	StoredAt time.Time
}

// Block is an encoded block of a variable.
type Block struct {
	Variable string
	// Index is the position of the block along the first dimension.
	Index int
	// Rows is the length of the block along the first dimension.
	Rows int
	// Data is the encoded block.
	Data []byte
	// Checksum is the checksum of Data.
	Checksum uint64
}

// Stats represents statistics about the storage.
type Stats struct {
	// Variables is the number of complete variables.
	Variables int
	// Blocks is the total number of blocks.
	Blocks int
	// Bytes is the total size of encoded blocks.
	Bytes int64
}

func open(cfg *Config) (*sql.DB, error) {
	file := cfg.file

	params := url.Values{}
	params.Add("_txlock", "immediate")
	params.Add("_timeout", "5000") // 5s
	params.Add("_foreign_keys", "on")
	if file == memory {
		file = uuid.NewString()
		params.Add("mode", "memory")
		params.Add("cache", "shared")
	} else {
		params.Add("_journal", "wal")
		params.Add("_sync", "normal")
		params.Add("_cache_size", "-20000") // 20mb
	}
	if cfg.durable {
		params.Set("_sync", "full")
	}

	db, err := sql.Open("sqlite3", "file:"+file+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	if params.Get("mode") == "memory" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.workers)
		db.SetMaxIdleConns(cfg.workers)
	}

	return db, nil
}

func setup(db *sql.DB) error {
	// Create table for variables.
	if _, err := db.Exec(
		`
		create table if not exists variable (
			name      text primary key,
			dims      text not null,
			attrs     text not null,
			encoding  text not null,
			dtype     text not null,
			shape     text not null,
			codec     text not null,
			blocks    int not null,
			complete  int not null,
			stored_at int not null
		) strict
		`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Create table for blocks.
	if _, err := db.Exec(
		`
		create table if not exists block (
			variable text not null references variable (name) on delete cascade on update cascade,
			idx      int not null,
			rows     int not null,
			data     blob not null,
			checksum int not null,
			primary key (variable, idx)
		) strict
		`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Just in case the database already existed and a previous write didn't finish.
	if _, err := db.Exec("delete from variable where complete = 0"); err != nil {
		return fmt.Errorf("delete incomplete variables: %w", err)
	}

	return nil
}

func closed(err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return ErrClosed
	}
	return err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toTimestamp(time time.Time) int64 {
	return time.UnixNano()
}

func fromTimestamp(timestamp int64) time.Time {
	return time.Unix(0, timestamp)
}
