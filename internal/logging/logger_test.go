package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
)

func resetLogging() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = NewRingBuffer(defaultBufferSize)
	logCallback = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"engine": "debug",
			"api":    "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"engine", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging()

	before := GetLogger("engine").Handler()
	if before.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"engine": "debug"}})

	// The LevelVar is shared, so the old handler follows the new level.
	if !before.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("existing handler should follow the updated LevelVar")
	}
	if !GetLogger("engine").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("rebuilt logger should have debug enabled")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info"})

	if SetModuleLevel("sink", "verbose") {
		t.Error("unknown level should be rejected")
	}
	if !SetModuleLevel("sink", "debug") {
		t.Fatal("debug should be accepted")
	}
	if !GetLogger("sink").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("sink should log debug after SetModuleLevel")
	}
}

func TestBufferCapturesDiagnostics(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info"})

	var seen []LogEntry
	SetLogCallback(func(entry LogEntry) {
		seen = append(seen, entry)
	})

	GetLogger("engine").Warn("Destination write failed", "destination", "/var/log/a.log")

	entries := GetBuffer().ReadAll()
	if len(entries) != 1 {
		t.Fatalf("buffer has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Module != "engine" || e.Level != "warn" || e.Attributes["destination"] != "/var/log/a.log" {
		t.Errorf("unexpected entry %+v", e)
	}
	if len(seen) != 1 {
		t.Errorf("callback called %d times, want 1", len(seen))
	}

	line := FormatLogLine(e)
	if !strings.Contains(line, "[WARN] [engine] Destination write failed destination=/var/log/a.log") {
		t.Errorf("FormatLogLine = %q", line)
	}
}

func TestRingBufferWrapsAndTails(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		rb.Write(LogEntry{Message: msg})
	}

	all := rb.ReadAll()
	if len(all) != 3 || all[0].Message != "b" || all[2].Message != "d" {
		t.Errorf("ReadAll = %+v", all)
	}
	tail := rb.Tail(2)
	if len(tail) != 2 || tail[0].Message != "c" {
		t.Errorf("Tail(2) = %+v", tail)
	}
	if rb.Count() != 3 {
		t.Errorf("Count = %d", rb.Count())
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	if count := strings.Count(buf.String(), "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, buf.String())
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRingBufferSince(t *testing.T) {
	rb := NewRingBuffer(3)
	var last LogEntry
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		last = rb.Write(LogEntry{Message: msg})
	}
	if last.Seq != 5 {
		t.Fatalf("Seq = %d, want 5", last.Seq)
	}

	got := rb.Since(3)
	if len(got) != 2 || got[0].Message != "d" || got[1].Seq != 5 {
		t.Errorf("Since(3) = %+v", got)
	}
	// Evicted records are skipped.
	if got := rb.Since(0); len(got) != 3 || got[0].Message != "c" {
		t.Errorf("Since(0) = %+v", got)
	}
	if got := rb.Since(5); got != nil {
		t.Errorf("Since(5) = %+v, want nil", got)
	}
}

func TestJournalFieldNames(t *testing.T) {
	fields := map[string]string{}
	addJournalField(fields, "", slog.String("destination", "/var/log/a.log"))
	addJournalField(fields, "", slog.Group("write.error", slog.Int("retries", 3)))
	addJournalField(fields, "", slog.String("_hidden", "x"))

	want := map[string]string{
		"DESTINATION":         "/var/log/a.log",
		"WRITE_ERROR_RETRIES": "3",
		"HIDDEN":              "x",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%s] = %q, want %q", k, fields[k], v)
		}
	}
	if journalPriority(slog.LevelWarn) != journal.PriWarning {
		t.Error("warn should map to PriWarning")
	}
}
