package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuditEventsWritten(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}

	audit := AuditWithRequest("req-42")
	audit.QuestionStart("req-42", "what container platform is this project using?")
	audit.TierComplete("req-42", "project-files", 0.82, 130, 3)
	audit.CommandExec("docker", []string{"ps"}, 45, true, "")
	audit.Probe("kubectl", false, 1500)
	audit.WebSearch("kubernetes ingress", 5, 900, true, "")
	audit.CacheEvent(AuditCacheMiss, "ab12cd34")
	audit.QuestionComplete("req-42", 0.82, 472, false)

	CloseAudit()
	CloseAll()

	logsPath := filepath.Join(tempDir, ".scout", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("read logs dir: %v", err)
	}

	var auditContent string
	for _, e := range entries {
		if strings.Contains(e.Name(), "audit") {
			data, err := os.ReadFile(filepath.Join(logsPath, e.Name()))
			if err != nil {
				t.Fatalf("read audit log: %v", err)
			}
			auditContent = string(data)
		}
	}
	if auditContent == "" {
		t.Fatal("no audit log file written")
	}

	// Every non-comment line must be valid JSON carrying the request ID
	// where one was set.
	var parsed int
	for _, line := range strings.Split(auditContent, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("audit line not JSON: %q: %v", line, err)
		}
		parsed++
		if ev.EventType == AuditQuestionStart && ev.RequestID != "req-42" {
			t.Errorf("question_start request ID = %q, want req-42", ev.RequestID)
		}
	}
	if parsed != 7 {
		t.Errorf("parsed %d audit events, want 7", parsed)
	}

	for _, want := range []string{"question_start", "tier_complete", "command_exec", "probe", "web_search", "cache_miss", "question_complete"} {
		if !strings.Contains(auditContent, want) {
			t.Errorf("audit log missing %q event", want)
		}
	}
}

func TestAuditDisabledIsNoop(t *testing.T) {
	tempDir := t.TempDir()

	// No config file at all: debug off, audit must be silent.
	resetState()
	defer resetState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}

	Audit().CommandExec("docker", []string{"ps"}, 10, true, "")
	CloseAudit()

	if _, err := os.Stat(filepath.Join(tempDir, ".scout", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not exist when debug mode is off")
	}
}
