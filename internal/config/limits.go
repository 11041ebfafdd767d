package config

import (
	"fmt"
	"runtime"
)

// Limits bounds the resources a rite may consume. Only LockTimeoutSec is
// read outside this package (by the rite command); the other fields are
// loaded and validated here, but the packages they describe use their own
// built-in values and do not read them.
type Limits struct {
	// WorkerPoolSize bounds concurrent discovery/hashing/validation work.
	// Zero means derive from min(32, cpu*4) at runtime.
	WorkerPoolSize int `yaml:"worker_pool_size" json:"worker_pool_size"`

	// LockTimeoutSec bounds advisory-lock acquisition at rite start.
	LockTimeoutSec int `yaml:"lock_timeout_sec" json:"lock_timeout_sec"`

	// ShellTimeoutSec is the default per-edict Symphony timeout, overridable
	// with a `timeout(N)` suffix on the edict itself.
	ShellTimeoutSec int `yaml:"shell_timeout_sec" json:"shell_timeout_sec"`

	// IncludeConnectTimeoutSec / IncludeReadTimeoutSec bound a remote
	// @include fetch.
	IncludeConnectTimeoutSec int `yaml:"include_connect_timeout_sec" json:"include_connect_timeout_sec"`
	IncludeReadTimeoutSec    int `yaml:"include_read_timeout_sec" json:"include_read_timeout_sec"`

	// ReversibleRmDirThreshold is the file-count above which a recursive
	// delete is marked non-reversible in the ledger.
	ReversibleRmDirThreshold int `yaml:"reversible_rmdir_threshold" json:"reversible_rmdir_threshold"`

	// ChronicleCompressThresholdBytes is the per-entry size above which an
	// archived chronicle payload is zstd-compressed.
	ChronicleCompressThresholdBytes int64 `yaml:"chronicle_compress_threshold_bytes" json:"chronicle_compress_threshold_bytes"`
}

// DefaultLimits returns the spec's documented defaults.
func DefaultLimits() Limits {
	return Limits{
		WorkerPoolSize:                  0, // resolved lazily, see ResolvedWorkerPoolSize
		LockTimeoutSec:                  30,
		ShellTimeoutSec:                 600,
		IncludeConnectTimeoutSec:        30,
		IncludeReadTimeoutSec:           30,
		ReversibleRmDirThreshold:        256,
		ChronicleCompressThresholdBytes: 64 * 1024,
	}
}

// ResolvedWorkerPoolSize applies the bound min(32, cpu*4) when
// WorkerPoolSize is unset (zero).
func (l Limits) ResolvedWorkerPoolSize() int {
	if l.WorkerPoolSize > 0 {
		return l.WorkerPoolSize
	}
	n := runtime.NumCPU() * 4
	if n > 32 {
		n = 32
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Validate checks that limits are within acceptable ranges.
func (l Limits) Validate() error {
	if l.LockTimeoutSec < 1 {
		return fmt.Errorf("lock_timeout_sec must be >= 1")
	}
	if l.ShellTimeoutSec < 1 {
		return fmt.Errorf("shell_timeout_sec must be >= 1")
	}
	if l.ReversibleRmDirThreshold < 0 {
		return fmt.Errorf("reversible_rmdir_threshold must be >= 0")
	}
	return nil
}
