// Package logging provides config-driven categorized file-based logging for
// the scaffolding engine. Logs are written to .scaffold/logs/ with a
// separate file per subsystem. Logging is controlled by logging.debug_mode
// in .scaffold/config.yaml - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category represents a log category/system
type Category string

const (
	// Core system categories
	CategoryBoot        Category = "boot"        // CLI/process boot, config load
	CategoryPerformance Category = "performance" // Timing, slow-operation warnings

	// Blueprint pipeline categories
	CategorySentinel     Category = "sentinel"     // Path Sentinel
	CategoryAlchemist    Category = "alchemist"    // Template resolver
	CategoryParser       Category = "parser"       // Blueprint parser
	CategoryWeaver       Category = "weaver"       // AST weaver
	CategoryStaging      Category = "staging"      // Staging manager
	CategoryLedger       Category = "ledger"       // Ledger
	CategoryReverser     Category = "reverser"     // Reverser / undo
	CategoryMaterializer Category = "materializer" // Transactional materializer
	CategoryChronicle    Category = "chronicle"    // Chronicle scribe / manifest
	CategoryIntegrity    Category = "integrity"    // Hashing and Merkle seals
	CategorySanctum      Category = "sanctum"      // External I/O sanctum
	CategorySymphony     Category = "symphony"     // Symphony shell orchestration
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid an import cycle (internal/config imports internal/logging).
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Format     string          `yaml:"format"` // "json" also enables JSONFormat
}

// configFile structure for reading .scaffold/config.yaml
type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// StructuredLogEntry represents a JSON log entry for scriptable consumption.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	TxID      string                 `json:"tx,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	config       loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".scaffold", "logs")

	// Load config first to check if debug mode is enabled
	if err := loadConfig(); err != nil {
		// Log to stderr if we can't load config
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		// Default to disabled (production mode)
		config.DebugMode = false
	}

	// Only create logs directory if debug mode is enabled
	if !config.DebugMode {
		return nil // Silent no-op in production mode
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Create a boot log entry
	bootLogger := Get(CategoryBoot)
	bootLogger.Info("=== scaffolding engine logging initialized ===")
	bootLogger.Info("Workspace: %s", workspace)
	bootLogger.Info("Logs directory: %s", logsDir)
	bootLogger.Info("Debug mode: %v", config.DebugMode)
	bootLogger.Info("Log level: %s", config.Level)

	// Log enabled categories
	if len(config.Categories) > 0 {
		enabledCount := 0
		for cat, enabled := range config.Categories {
			if enabled {
				enabledCount++
			}
			bootLogger.Debug("Category '%s': %v", cat, enabled)
		}
		bootLogger.Info("Enabled categories: %d/%d", enabledCount, len(config.Categories))
	} else {
		bootLogger.Info("All categories enabled (no category filter)")
	}

	return nil
}

// loadConfig reads the logging config from .scaffold/config.yaml
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".scaffold", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config = production mode (no logging)
			config.DebugMode = false
			configLoaded = true
			return nil
		}
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	config = cf.Logging
	if config.Format == "json" {
		config.JSONFormat = true
	}
	configLoaded = true

	// Parse log level
	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return nil
}

// ReloadConfig reloads the config from disk.
// Call this if config changes at runtime.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}

	if config.Categories == nil {
		return true // All enabled by default in debug mode
	}

	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		// Return a no-op logger
		return &Logger{category: category}
	}

	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	// Create new logger
	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	// Create log file with date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to no-op logger
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l

	return l
}

// logJSON writes a structured JSON log entry
func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg) // Fallback to text
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a fully structured log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if config.JSONFormat {
		data, err := json.Marshal(entry)
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	// Fallback to text format with fields
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// IsJSONFormat returns whether JSON logging is enabled
func IsJSONFormat() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.JSONFormat
}

// WithContext returns a context logger for structured logging
func (l *Logger) WithContext(ctx map[string]interface{}) *ContextLogger {
	return &ContextLogger{logger: l, context: ctx}
}

// ContextLogger provides structured logging with key-value context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

func (c *ContextLogger) Debug(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[DEBUG] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Info(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[INFO] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Warn(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[WARN] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Error(format string, args ...interface{}) {
	if c.logger.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[ERROR] %s | ctx=%v", msg, c.context)
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// BootWarn logs warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// Performance logs to the performance category
func Performance(format string, args ...interface{}) {
	Get(CategoryPerformance).Info(format, args...)
}

// PerformanceDebug logs debug to the performance category
func PerformanceDebug(format string, args ...interface{}) {
	Get(CategoryPerformance).Debug(format, args...)
}

// PerformanceWarn logs warning to the performance category
func PerformanceWarn(format string, args ...interface{}) {
	Get(CategoryPerformance).Warn(format, args...)
}

// PerformanceError logs error to the performance category
func PerformanceError(format string, args ...interface{}) {
	Get(CategoryPerformance).Error(format, args...)
}

// Sentinel logs to the sentinel category
func Sentinel(format string, args ...interface{}) {
	Get(CategorySentinel).Info(format, args...)
}

// SentinelDebug logs debug to the sentinel category
func SentinelDebug(format string, args ...interface{}) {
	Get(CategorySentinel).Debug(format, args...)
}

// SentinelWarn logs warning to the sentinel category
func SentinelWarn(format string, args ...interface{}) {
	Get(CategorySentinel).Warn(format, args...)
}

// SentinelError logs error to the sentinel category
func SentinelError(format string, args ...interface{}) {
	Get(CategorySentinel).Error(format, args...)
}

// Alchemist logs to the alchemist category
func Alchemist(format string, args ...interface{}) {
	Get(CategoryAlchemist).Info(format, args...)
}

// AlchemistDebug logs debug to the alchemist category
func AlchemistDebug(format string, args ...interface{}) {
	Get(CategoryAlchemist).Debug(format, args...)
}

// AlchemistWarn logs warning to the alchemist category
func AlchemistWarn(format string, args ...interface{}) {
	Get(CategoryAlchemist).Warn(format, args...)
}

// AlchemistError logs error to the alchemist category
func AlchemistError(format string, args ...interface{}) {
	Get(CategoryAlchemist).Error(format, args...)
}

// Parser logs to the parser category
func Parser(format string, args ...interface{}) {
	Get(CategoryParser).Info(format, args...)
}

// ParserDebug logs debug to the parser category
func ParserDebug(format string, args ...interface{}) {
	Get(CategoryParser).Debug(format, args...)
}

// ParserWarn logs warning to the parser category
func ParserWarn(format string, args ...interface{}) {
	Get(CategoryParser).Warn(format, args...)
}

// ParserError logs error to the parser category
func ParserError(format string, args ...interface{}) {
	Get(CategoryParser).Error(format, args...)
}

// Weaver logs to the weaver category
func Weaver(format string, args ...interface{}) {
	Get(CategoryWeaver).Info(format, args...)
}

// WeaverDebug logs debug to the weaver category
func WeaverDebug(format string, args ...interface{}) {
	Get(CategoryWeaver).Debug(format, args...)
}

// WeaverWarn logs warning to the weaver category
func WeaverWarn(format string, args ...interface{}) {
	Get(CategoryWeaver).Warn(format, args...)
}

// WeaverError logs error to the weaver category
func WeaverError(format string, args ...interface{}) {
	Get(CategoryWeaver).Error(format, args...)
}

// Staging logs to the staging category
func Staging(format string, args ...interface{}) {
	Get(CategoryStaging).Info(format, args...)
}

// StagingDebug logs debug to the staging category
func StagingDebug(format string, args ...interface{}) {
	Get(CategoryStaging).Debug(format, args...)
}

// StagingWarn logs warning to the staging category
func StagingWarn(format string, args ...interface{}) {
	Get(CategoryStaging).Warn(format, args...)
}

// StagingError logs error to the staging category
func StagingError(format string, args ...interface{}) {
	Get(CategoryStaging).Error(format, args...)
}

// Ledger logs to the ledger category
func Ledger(format string, args ...interface{}) {
	Get(CategoryLedger).Info(format, args...)
}

// LedgerDebug logs debug to the ledger category
func LedgerDebug(format string, args ...interface{}) {
	Get(CategoryLedger).Debug(format, args...)
}

// LedgerWarn logs warning to the ledger category
func LedgerWarn(format string, args ...interface{}) {
	Get(CategoryLedger).Warn(format, args...)
}

// LedgerError logs error to the ledger category
func LedgerError(format string, args ...interface{}) {
	Get(CategoryLedger).Error(format, args...)
}

// Reverser logs to the reverser category
func Reverser(format string, args ...interface{}) {
	Get(CategoryReverser).Info(format, args...)
}

// ReverserDebug logs debug to the reverser category
func ReverserDebug(format string, args ...interface{}) {
	Get(CategoryReverser).Debug(format, args...)
}

// ReverserWarn logs warning to the reverser category
func ReverserWarn(format string, args ...interface{}) {
	Get(CategoryReverser).Warn(format, args...)
}

// ReverserError logs error to the reverser category
func ReverserError(format string, args ...interface{}) {
	Get(CategoryReverser).Error(format, args...)
}

// Materializer logs to the materializer category
func Materializer(format string, args ...interface{}) {
	Get(CategoryMaterializer).Info(format, args...)
}

// MaterializerDebug logs debug to the materializer category
func MaterializerDebug(format string, args ...interface{}) {
	Get(CategoryMaterializer).Debug(format, args...)
}

// MaterializerWarn logs warning to the materializer category
func MaterializerWarn(format string, args ...interface{}) {
	Get(CategoryMaterializer).Warn(format, args...)
}

// MaterializerError logs error to the materializer category
func MaterializerError(format string, args ...interface{}) {
	Get(CategoryMaterializer).Error(format, args...)
}

// Chronicle logs to the chronicle category
func Chronicle(format string, args ...interface{}) {
	Get(CategoryChronicle).Info(format, args...)
}

// ChronicleDebug logs debug to the chronicle category
func ChronicleDebug(format string, args ...interface{}) {
	Get(CategoryChronicle).Debug(format, args...)
}

// ChronicleWarn logs warning to the chronicle category
func ChronicleWarn(format string, args ...interface{}) {
	Get(CategoryChronicle).Warn(format, args...)
}

// ChronicleError logs error to the chronicle category
func ChronicleError(format string, args ...interface{}) {
	Get(CategoryChronicle).Error(format, args...)
}

// Integrity logs to the integrity category
func Integrity(format string, args ...interface{}) {
	Get(CategoryIntegrity).Info(format, args...)
}

// IntegrityDebug logs debug to the integrity category
func IntegrityDebug(format string, args ...interface{}) {
	Get(CategoryIntegrity).Debug(format, args...)
}

// IntegrityWarn logs warning to the integrity category
func IntegrityWarn(format string, args ...interface{}) {
	Get(CategoryIntegrity).Warn(format, args...)
}

// IntegrityError logs error to the integrity category
func IntegrityError(format string, args ...interface{}) {
	Get(CategoryIntegrity).Error(format, args...)
}

// Sanctum logs to the sanctum category
func Sanctum(format string, args ...interface{}) {
	Get(CategorySanctum).Info(format, args...)
}

// SanctumDebug logs debug to the sanctum category
func SanctumDebug(format string, args ...interface{}) {
	Get(CategorySanctum).Debug(format, args...)
}

// SanctumWarn logs warning to the sanctum category
func SanctumWarn(format string, args ...interface{}) {
	Get(CategorySanctum).Warn(format, args...)
}

// SanctumError logs error to the sanctum category
func SanctumError(format string, args ...interface{}) {
	Get(CategorySanctum).Error(format, args...)
}

// Symphony logs to the symphony category
func Symphony(format string, args ...interface{}) {
	Get(CategorySymphony).Info(format, args...)
}

// SymphonyDebug logs debug to the symphony category
func SymphonyDebug(format string, args ...interface{}) {
	Get(CategorySymphony).Debug(format, args...)
}

// SymphonyWarn logs warning to the symphony category
func SymphonyWarn(format string, args ...interface{}) {
	Get(CategorySymphony).Warn(format, args...)
}

// SymphonyError logs error to the symphony category
func SymphonyError(format string, args ...interface{}) {
	Get(CategorySymphony).Error(format, args...)
}


// =============================================================================
// REQUEST ID TRACING - For distributed request tracing
// =============================================================================

// RequestLogger provides request-scoped logging with a correlation ID
type RequestLogger struct {
	logger    *Logger
	requestID string
	fields    map[string]interface{}
}

// WithRequestID creates a request-scoped logger for distributed tracing
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		logger:    Get(category),
		requestID: requestID,
		fields:    make(map[string]interface{}),
	}
}

// WithField adds a field to the request logger
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	r.fields[key] = value
	return r
}

func (r *RequestLogger) formatMsg(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if len(r.fields) > 0 {
		return fmt.Sprintf("[req:%s] %s | %v", r.requestID, msg, r.fields)
	}
	return fmt.Sprintf("[req:%s] %s", r.requestID, msg)
}

func (r *RequestLogger) Debug(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	r.logger.logger.Printf("[DEBUG] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	r.logger.logger.Printf("[INFO] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Warn(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	r.logger.logger.Printf("[WARN] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	if r.logger.logger == nil {
		return
	}
	r.logger.logger.Printf("[ERROR] %s", r.formatMsg(format, args...))
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
