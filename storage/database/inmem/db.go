package inmemdb

import (
	"sync"

	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
)

// DB is an in-memory store for tests and for running the API without Postgres.
// Transactions are serialized by txMu and rolled back by restoring a snapshot of the tables.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users       map[string]user.User
	categories  map[string]assignment.Category
	assignments map[string]assignment.Assignment
	progress    map[string]assignment.Progress
	history     []assignment.ScoreHistory
}

func New() *DB {
	return &DB{
		users:       make(map[string]user.User),
		categories:  make(map[string]assignment.Category),
		assignments: make(map[string]assignment.Assignment),
		progress:    make(map[string]assignment.Progress),
	}
}

type snapshot struct {
	users       map[string]user.User
	categories  map[string]assignment.Category
	assignments map[string]assignment.Assignment
	progress    map[string]assignment.Progress
	history     []assignment.ScoreHistory
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return snapshot{
		users:       copyMap(db.users),
		categories:  copyMap(db.categories),
		assignments: copyMap(db.assignments),
		progress:    copyMap(db.progress),
		history:     append([]assignment.ScoreHistory(nil), db.history...),
	}
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = s.users
	db.categories = s.categories
	db.assignments = s.assignments
	db.progress = s.progress
	db.history = s.history
}

// Reset empties every table.
func (db *DB) Reset() {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	db.restore(snapshot{
		users:       make(map[string]user.User),
		categories:  make(map[string]assignment.Category),
		assignments: make(map[string]assignment.Assignment),
		progress:    make(map[string]assignment.Progress),
	})
}

// write runs a single write; outside a transaction it takes the transaction lock itself.
func (db *DB) write(inTx bool, fn func()) {
	if !inTx {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}
