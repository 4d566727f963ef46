package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	modulePath  = "github.com/mstgnz/gocips/"
	loggerPkg   = modulePath + "infra/logger."
	sinkTimeout = 5 * time.Second
	redacted    = "[REDACTED]"
)

// EventSink receives structured entries for remote storage
type EventSink interface {
	LogSystemEvent(ctx context.Context, entry any) error
}

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// sensitiveFields never reach the console or the sink in clear text
var sensitiveFields = map[string]bool{
	"password":          true,
	"creditor_password": true,
	"token":             true,
	"authorization":     true,
	"certificate":       true,
}

// SystemLog is one structured log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	Line        int            `json:"line"`
	TenantID    string         `json:"tenant_id,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	TxnID       string         `json:"txn_id,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole    bool
	EnableOpenSearch bool
	MinLevel         LogLevel
	Service          string
	Version          string
	Environment      string
	// Output receives console lines; stdout when nil
	Output io.Writer
}

// LogContext holds the request and transaction an entry belongs to
type LogContext struct {
	TenantID  string
	Provider  string
	TxnID     string
	RequestID string
	Fields    map[string]any
}

// SystemLogger writes entries to the console and, when configured, to a sink
type SystemLogger struct {
	sink             EventSink
	enableConsole    bool
	enableOpenSearch bool
	minLevel         LogLevel
	service          string
	version          string
	environment      string

	outMu sync.Mutex
	out   io.Writer
	exit  func(int)
}

// NewSystemLogger creates a new system logger
func NewSystemLogger(sink EventSink, config SystemLoggerConfig) *SystemLogger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	return &SystemLogger{
		sink:             sink,
		enableConsole:    config.EnableConsole,
		enableOpenSearch: config.EnableOpenSearch && sink != nil,
		minLevel:         config.MinLevel,
		service:          config.Service,
		version:          config.Version,
		environment:      config.Environment,
		out:              out,
		exit:             os.Exit,
	}
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, nil, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, nil, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, nil, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.log(LevelError, message, err, ctx...)
}

// Fatal logs and exits with status 1
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.log(LevelFatal, message, err, ctx...)
	sl.exit(1)
}

func (sl *SystemLogger) log(level LogLevel, message string, err error, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	component, function, line := caller()
	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   component,
		Function:    function,
		Line:        line,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if len(ctx) > 0 {
		c := ctx[0]
		entry.TenantID = c.TenantID
		entry.Provider = c.Provider
		entry.TxnID = c.TxnID
		entry.RequestID = c.RequestID
		entry.Fields = redact(c.Fields)
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if sl.enableConsole {
		sl.writeConsole(entry)
	}
	if sl.enableOpenSearch {
		go sl.ship(entry)
	}
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return levelRank[level] >= levelRank[sl.minLevel]
}

// caller finds the first frame outside this package and names it by package
// path relative to the module, e.g. provider/connectips
func caller() (component, function string, line int) {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, loggerPkg) || strings.HasSuffix(frame.File, "_test.go") {
			component, function = splitFunction(frame.Function)
			return component, function, frame.Line
		}
		if !more {
			return "unknown", "unknown", 0
		}
	}
}

// splitFunction turns "github.com/mstgnz/gocips/provider.(*PaymentService).GenerateToken"
// into ("provider", "GenerateToken")
func splitFunction(name string) (string, string) {
	if name == "" {
		return "unknown", "unknown"
	}
	name = strings.TrimPrefix(name, modulePath)

	pkg, fn := name, name
	if slash := strings.LastIndex(name, "/"); slash != -1 {
		if dot := strings.Index(name[slash:], "."); dot != -1 {
			pkg, fn = name[:slash+dot], name[slash+dot+1:]
		}
	} else if dot := strings.Index(name, "."); dot != -1 {
		pkg, fn = name[:dot], name[dot+1:]
	}
	if dot := strings.LastIndex(fn, "."); dot != -1 {
		fn = fn[dot+1:]
	}
	return pkg, fn
}

func redact(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if sensitiveFields[strings.ToLower(k)] {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

// writeConsole prints one line: TIMESTAMP LEVEL [component] [context] message key=value...
func (sl *SystemLogger) writeConsole(entry SystemLog) {
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(string(entry.Level)))
	fmt.Fprintf(&b, " [%s]", entry.Component)

	var parts []string
	if entry.TenantID != "" {
		parts = append(parts, "tenant="+entry.TenantID)
	}
	if entry.Provider != "" {
		parts = append(parts, "provider="+entry.Provider)
	}
	if entry.TxnID != "" {
		parts = append(parts, "txn="+entry.TxnID)
	}
	if entry.RequestID != "" {
		parts = append(parts, "req_id="+shortID(entry.RequestID))
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)
	if entry.Error != "" {
		b.WriteString(" error=")
		b.WriteString(fmt.Sprintf("%q", entry.Error))
	}

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	b.WriteString("\n")

	sl.outMu.Lock()
	defer sl.outMu.Unlock()
	_, _ = io.WriteString(sl.out, b.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (sl *SystemLogger) ship(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := sl.sink.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("Failed to ship log entry: %v", err)
	}
}
