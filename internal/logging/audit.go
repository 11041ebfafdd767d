// Package logging also provides audit logging for rite-level telemetry:
// structured JSON-line events distinct from the Ledger's reversible
// operation log (internal/ledger), useful for dashboards and postmortems.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditEventType categorizes a rite-level telemetry event.
type AuditEventType string

const (
	AuditRiteBegin     AuditEventType = "rite_begin"
	AuditRiteCommit    AuditEventType = "rite_commit"
	AuditRiteRollback  AuditEventType = "rite_rollback"
	AuditHeresyRaised  AuditEventType = "heresy_raised"
	AuditEdictExecuted AuditEventType = "edict_executed"
	AuditVowChecked    AuditEventType = "vow_checked"
	AuditPerfSlow      AuditEventType = "perf_slow"
)

// AuditEvent is a structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat"`
	TxID       string                 `json:"tx,omitempty"`
	Target     string                 `json:"target"`
	Action     string                 `json:"action"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log for the current rite. No-op outside debug mode.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	auditFile = file
	fmt.Fprintf(auditFile, "# audit log started at %s\n", time.Now().Format(time.RFC3339))
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger scopes audit events to a transaction.
type AuditLogger struct {
	txID string
}

// AuditWithTx creates an audit logger scoped to a transaction id.
func AuditWithTx(txID string) *AuditLogger {
	return &AuditLogger{txID: txID}
}

// Log writes an audit event as a JSON line.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.TxID == "" {
		event.TxID = a.txID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	auditFile.Write(data)
	auditFile.Write([]byte("\n"))
}

// RiteBegin logs the start of a rite's transaction.
func (a *AuditLogger) RiteBegin(blueprint string) {
	a.Log(AuditEvent{EventType: AuditRiteBegin, Target: blueprint, Success: true,
		Message: fmt.Sprintf("rite begin: %s", blueprint)})
}

// RiteCommit logs a successful promote+commit.
func (a *AuditLogger) RiteCommit(durationMs int64, fileCount int) {
	a.Log(AuditEvent{EventType: AuditRiteCommit, Success: true, DurationMs: durationMs,
		Fields:  map[string]interface{}{"file_count": fileCount},
		Message: fmt.Sprintf("rite committed: %d files in %dms", fileCount, durationMs)})
}

// RiteRollback logs a rollback, successful or not.
func (a *AuditLogger) RiteRollback(reason string, success bool) {
	a.Log(AuditEvent{EventType: AuditRiteRollback, Success: success, Error: reason,
		Message: fmt.Sprintf("rite rollback (success=%v): %s", success, reason)})
}

// HeresyRaised logs a heresy (fatal or warning) encountered during a rite.
func (a *AuditLogger) HeresyRaised(kind, message string, fatal bool) {
	a.Log(AuditEvent{EventType: AuditHeresyRaised, Action: kind, Success: !fatal, Error: message,
		Message: fmt.Sprintf("%s: %s", kind, message)})
}

// EdictExecuted logs a Symphony action edict's outcome.
func (a *AuditLogger) EdictExecuted(command string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{EventType: AuditEdictExecuted, Target: command, Success: success,
		DurationMs: durationMs, Error: errMsg,
		Message: fmt.Sprintf("edict %q completed (success=%v, %dms)", command, success, durationMs)})
}

// VowChecked logs a Symphony vow's outcome.
func (a *AuditLogger) VowChecked(kind string, success bool, detail string) {
	a.Log(AuditEvent{EventType: AuditVowChecked, Action: kind, Success: success,
		Message: fmt.Sprintf("vow %s checked (success=%v): %s", kind, success, detail)})
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
