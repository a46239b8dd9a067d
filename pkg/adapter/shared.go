package adapter

import (
	"database/sql"
	"fmt"
	"sync"
)

// Embedded engines keep one *sql.DB per file for the whole process. DuckDB
// refuses a second handle on a file it has open, and SQLite handles are
// cheaper to share than to reopen. Each adapter pins its own connection
// from the shared handle.

type sharedHandle struct {
	db   *sql.DB
	refs int
}

var (
	sharedMu sync.Mutex
	shared   = make(map[string]*sharedHandle)
)

// OpenShared returns the process-wide handle for (driver, dsn), opening it on
// first use. The returned release func drops the reference and closes the
// handle with the last one; it must be called exactly once.
func OpenShared(driver, dsn string, configure func(*sql.DB)) (*sql.DB, func() error, error) {
	key := driver + "\x00" + dsn

	sharedMu.Lock()
	defer sharedMu.Unlock()

	h, ok := shared[key]
	if !ok {
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s database: %w", driver, err)
		}
		if configure != nil {
			configure(db)
		}
		h = &sharedHandle{db: db}
		shared[key] = h
	}
	h.refs++

	var once sync.Once
	release := func() error {
		var err error
		once.Do(func() {
			sharedMu.Lock()
			defer sharedMu.Unlock()
			h.refs--
			if h.refs == 0 {
				delete(shared, key)
				err = h.db.Close()
			}
		})
		return err
	}
	return h.db, release, nil
}

// SharedHandles returns the number of open shared handles.
func SharedHandles() int {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return len(shared)
}
