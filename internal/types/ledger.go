package types

import "time"

// LedgerOp names the filesystem operation a LedgerEntry records.
type LedgerOp string

const (
	OpMkDir      LedgerOp = "mkdir"
	OpWriteFile  LedgerOp = "write_file"
	OpDeleteFile LedgerOp = "delete_file"
	OpRmDir      LedgerOp = "rmdir"
	OpChmod      LedgerOp = "chmod"
	OpSymlink    LedgerOp = "symlink"
	OpExecShell  LedgerOp = "exec_shell"
)

// Inverse describes how to undo a LedgerEntry: the op to run, its
// parameters, and (for writes/deletes) a content/metadata snapshot taken
// before the forward operation applied.
type Inverse struct {
	Op               LedgerOp
	Params           map[string]string
	SnapshotContent  []byte
	SnapshotMetadata map[string]string
}

// LedgerEntry is a single append-only record of a materialization step and
// (when reversible) how to undo it. A committed transaction's entries are
// replayed in strict reverse order during undo.
type LedgerEntry struct {
	Actor         string // subsystem name, e.g. "materializer", "symphony"
	Op            LedgerOp
	ForwardState  map[string]string // path, content hash, mode, command, ...
	Inverse       *Inverse          // nil when Reversible is false
	Reversible    bool
	Timestamp     time.Time
	TransactionID string
}
