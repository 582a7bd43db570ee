// Audit logging for scout: append-only JSON-line events covering the
// full life of a research question - cascade stages, capability
// probes, every external command executed, web calls, cache activity.
// One line per event so the trail stays grep- and jq-friendly.
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

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Question lifecycle
	AuditQuestionStart    AuditEventType = "question_start"
	AuditQuestionComplete AuditEventType = "question_complete"

	// Evidence tier activity
	AuditTierQuery    AuditEventType = "tier_query"
	AuditTierComplete AuditEventType = "tier_complete"
	AuditTierError    AuditEventType = "tier_error"

	// Environment access
	AuditProbe       AuditEventType = "probe"
	AuditCommandExec AuditEventType = "command_exec"

	// Web access
	AuditWebSearch AuditEventType = "web_search"

	// Cache activity
	AuditCacheHit   AuditEventType = "cache_hit"
	AuditCacheMiss  AuditEventType = "cache_miss"
	AuditCacheEvict AuditEventType = "cache_evict"

	// Performance and errors
	AuditPerfSlow     AuditEventType = "perf_slow"
	AuditErrorGeneric AuditEventType = "error"
)

// AuditEvent is one structured audit line.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`    // Unix milliseconds
	EventType  AuditEventType         `json:"event"` // What happened
	Category   string                 `json:"cat,omitempty"`
	RequestID  string                 `json:"req,omitempty"` // Question correlation
	Target     string                 `json:"target,omitempty"`
	Action     string                 `json:"action,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger writes audit events, optionally scoped to one request.
type AuditLogger struct {
	requestID string
	category  Category
}

// InitAudit initializes the audit logging system
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n# Format: one JSON event per line\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithRequest creates an audit logger scoped to one question
func AuditWithRequest(requestID string) *AuditLogger {
	return &AuditLogger{requestID: requestID}
}

// AuditWithContext creates a fully-scoped audit logger
func AuditWithContext(requestID string, category Category) *AuditLogger {
	return &AuditLogger{requestID: requestID, category: category}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RequestID == "" && a.requestID != "" {
		event.RequestID = a.requestID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// QuestionStart logs the start of a research question
func (a *AuditLogger) QuestionStart(requestID, question string) {
	a.Log(AuditEvent{
		EventType: AuditQuestionStart,
		RequestID: requestID,
		Target:    truncate(question, 200),
		Success:   true,
		Message:   fmt.Sprintf("Question started: %s", truncate(question, 80)),
	})
}

// QuestionComplete logs the completion of a research question
func (a *AuditLogger) QuestionComplete(requestID string, confidence float64, durationMs int64, cacheHit bool) {
	a.Log(AuditEvent{
		EventType:  AuditQuestionComplete,
		RequestID:  requestID,
		Success:    true,
		Confidence: confidence,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"cache_hit": cacheHit},
		Message:    fmt.Sprintf("Question completed: confidence=%.2f (%dms, cache=%v)", confidence, durationMs, cacheHit),
	})
}

// TierComplete logs one evidence tier finishing
func (a *AuditLogger) TierComplete(requestID, tier string, confidence float64, durationMs int64, evidenceCount int) {
	a.Log(AuditEvent{
		EventType:  AuditTierComplete,
		RequestID:  requestID,
		Target:     tier,
		Success:    true,
		Confidence: confidence,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"evidence": evidenceCount},
		Message:    fmt.Sprintf("Tier %s: confidence=%.2f, %d evidence (%dms)", tier, confidence, evidenceCount, durationMs),
	})
}

// TierError logs a tier that failed and was degraded, not propagated
func (a *AuditLogger) TierError(requestID, tier string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: AuditTierError,
		RequestID: requestID,
		Target:    tier,
		Success:   false,
		Error:     msg,
		Message:   fmt.Sprintf("Tier %s degraded: %s", tier, msg),
	})
}

// Probe logs a capability availability probe
func (a *AuditLogger) Probe(capability string, available bool, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditProbe,
		Target:     capability,
		Success:    available,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("Probe %s: available=%v (%dms)", capability, available, durationMs),
	})
}

// CommandExec logs one external command execution
func (a *AuditLogger) CommandExec(binary string, args []string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditCommandExec,
		Target:     binary,
		Action:     strings.Join(args, " "),
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Exec %s %s (%dms, success=%v)", binary, strings.Join(args, " "), durationMs, success),
	})
}

// WebSearch logs a web search call
func (a *AuditLogger) WebSearch(query string, results int, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditWebSearch,
		Target:     truncate(query, 200),
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"results": results},
		Message:    fmt.Sprintf("Web search: %d results (%dms, success=%v)", results, durationMs, success),
	})
}

// CacheEvent logs cache activity (hit/miss/evict)
func (a *AuditLogger) CacheEvent(event AuditEventType, key string) {
	a.Log(AuditEvent{
		EventType: event,
		Target:    key,
		Success:   true,
		Message:   fmt.Sprintf("Cache %s: %s", event, key),
	})
}

// PerfMetric logs a performance metric, flagging slow operations
func (a *AuditLogger) PerfMetric(operation string, durationMs int64, threshold int64) {
	eventType := AuditEventType("perf_metric")
	success := true
	if threshold > 0 && durationMs > threshold {
		eventType = AuditPerfSlow
		success = false
	}
	fields := map[string]interface{}{}
	if threshold > 0 {
		fields["threshold_ms"] = threshold
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Action:     operation,
		DurationMs: durationMs,
		Success:    success,
		Fields:     fields,
		Message:    fmt.Sprintf("Perf: %s took %dms (threshold=%dms)", operation, durationMs, threshold),
	})
}

// Error logs an error event
func (a *AuditLogger) Error(category string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: AuditErrorGeneric,
		Category:  category,
		Success:   false,
		Error:     errMsg,
		Message:   fmt.Sprintf("Error in %s: %s", category, errMsg),
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
