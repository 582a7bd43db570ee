package main

import (
	"strings"
	"testing"
	"time"

	"scout/internal/rescache"
	"scout/internal/research"
)

func TestSessionFormatAnswer(t *testing.T) {
	m := newSession(&bootResult{})

	ans := &research.Answer{
		Text: "**Answer:** PostgreSQL 16 under compose.",
		Metadata: research.Metadata{
			TiersQueried:    []research.SourceType{research.SourceProjectFiles, research.SourceEnvironment},
			TotalDurationMs: 9,
		},
	}
	out := m.formatAnswer(ans)
	if !strings.Contains(out, "tiers: project-files, environment | 9ms") {
		t.Fatalf("expected tier footer, got: %s", out)
	}

	ans.Metadata.CacheHit = true
	out = m.formatAnswer(ans)
	if !strings.Contains(out, "cached answer") {
		t.Fatalf("expected cached marker, got: %s", out)
	}

	ans.NeedsWebSearch = true
	out = m.formatAnswer(ans)
	if !strings.Contains(out, "/web on") {
		t.Fatalf("expected web hint while web is off, got: %s", out)
	}

	m.allowWeb = true
	out = m.formatAnswer(ans)
	if strings.Contains(out, "/web on") {
		t.Fatalf("web hint should disappear once web is authorized: %s", out)
	}
}

func TestSessionWebToggle(t *testing.T) {
	m := newSession(&bootResult{})

	updated, _ := m.handleCommand("/web")
	sm := updated.(sessionModel)
	if !sm.allowWeb {
		t.Fatal("bare /web should toggle web search on")
	}
	last := sm.history[len(sm.history)-1]
	if !strings.Contains(last.content, "Web search is now **on**") {
		t.Fatalf("expected toggle notice, got: %s", last.content)
	}

	updated, _ = sm.handleCommand("/web off")
	sm = updated.(sessionModel)
	if sm.allowWeb {
		t.Fatal("/web off should disable web search")
	}
}

func TestSessionClearCommand(t *testing.T) {
	m := newSession(&bootResult{})
	m.history = []sessionMessage{
		{role: "user", content: "what db do we use", time: time.Now()},
		{role: "scout", content: "**Answer:** postgres", time: time.Now()},
	}

	updated, _ := m.handleCommand("/clear")
	sm := updated.(sessionModel)
	if len(sm.history) != 0 {
		t.Fatalf("expected empty history after /clear, got %d entries", len(sm.history))
	}
}

func TestSessionCacheCommand(t *testing.T) {
	cache := rescache.NewCache(time.Minute)
	defer cache.Close()

	m := newSession(&bootResult{cache: cache})
	updated, _ := m.handleCommand("/cache")
	sm := updated.(sessionModel)

	last := sm.history[len(sm.history)-1]
	if !strings.Contains(last.content, "Answer cache") {
		t.Fatalf("expected cache stats, got: %s", last.content)
	}
}

func TestSessionUnknownCommand(t *testing.T) {
	m := newSession(&bootResult{})
	updated, _ := m.handleCommand("/bogus")
	sm := updated.(sessionModel)

	last := sm.history[len(sm.history)-1]
	if !strings.Contains(last.content, "Unknown command") {
		t.Fatalf("expected unknown command notice, got: %s", last.content)
	}
}

func TestSessionRenderHistory(t *testing.T) {
	m := newSession(&bootResult{})
	m.history = []sessionMessage{
		{role: "user", content: "what db do we use", time: time.Now()},
		{role: "scout", content: "**Answer:** postgres", time: time.Now()},
	}

	out := m.renderHistory()
	if !strings.Contains(out, "You") {
		t.Fatalf("expected user header, got: %s", out)
	}
	if !strings.Contains(out, "what db do we use") {
		t.Fatalf("expected question text, got: %s", out)
	}
	if !strings.Contains(out, "postgres") {
		t.Fatalf("expected answer text, got: %s", out)
	}
}

func TestSafeRenderMarkdownWithoutRenderer(t *testing.T) {
	m := sessionModel{}
	if got := m.safeRenderMarkdown("plain **md**"); got != "plain **md**" {
		t.Fatalf("expected raw passthrough without renderer, got: %s", got)
	}
}
