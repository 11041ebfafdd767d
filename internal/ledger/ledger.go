// Package ledger is the append-only record of every materialization step a
// transaction performs, and the Reverser that walks a ledger backward to
// undo it. The shape mirrors the teacher's own jsonl result logs
// (internal/campaign's appendJSONL/readAssaultResults pair): append under
// an exclusive lock, read back line-by-line, tolerate a blank or malformed
// trailing line rather than fail the whole read.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/novalym/velm-sub003/internal/types"
)

// Ledger holds the in-memory entries for one or more transactions, each
// keyed by TransactionID, and tracks how much of each transaction's
// entries have already been persisted so Persist only ever appends a
// tail, never rewrites history.
type Ledger struct {
	mu        sync.Mutex
	entries   map[string][]types.LedgerEntry
	persisted map[string]int
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		entries:   make(map[string][]types.LedgerEntry),
		persisted: make(map[string]int),
	}
}

// Record appends entry to its transaction's in-memory log. Entries within
// a transaction are expected in real-time operation order; the Reverser
// replays them in the opposite order.
func (l *Ledger) Record(entry types.LedgerEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.TransactionID] = append(l.entries[entry.TransactionID], entry)
}

// Snapshot returns an immutable copy of txID's entries recorded so far.
func (l *Ledger) Snapshot(txID string) []types.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.entries[txID]
	out := make([]types.LedgerEntry, len(src))
	copy(out, src)
	return out
}

// Persist appends the entries recorded since the last Persist call for
// txID to path, one JSON object per line, via s. It is safe to call
// repeatedly during a long transaction (e.g. after every Stage step) since
// it only ever appends its tail.
func (l *Ledger) Persist(ctx context.Context, s types.Sanctum, txID, path string) error {
	l.mu.Lock()
	all := l.entries[txID]
	start := l.persisted[txID]
	tail := append([]types.LedgerEntry(nil), all[start:]...)
	l.persisted[txID] = len(all)
	l.mu.Unlock()

	if len(tail) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range tail {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encoding ledger entry: %w", err)
		}
	}

	info, err := s.Stat(ctx, path)
	if err != nil {
		return fmt.Errorf("stat ledger journal %s: %w", path, err)
	}
	var existing []byte
	if info.Exists {
		existing, err = s.ReadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("reading ledger journal %s: %w", path, err)
		}
	}
	return s.WriteFile(ctx, path, append(existing, buf.Bytes()...), "")
}

// ReadJournal parses every well-formed line of a persisted ledger journal;
// a blank or malformed trailing line (a crash mid-write) is skipped rather
// than failing the whole read.
func ReadJournal(ctx context.Context, s types.Sanctum, path string) ([]types.LedgerEntry, error) {
	info, err := s.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, nil
	}
	data, err := s.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []types.LedgerEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry types.LedgerEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
