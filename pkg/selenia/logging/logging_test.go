package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)
	l.Infof("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below min level, got %q", buf.String())
	}
	l.Warnf("visible %d", 1)
	if !strings.Contains(buf.String(), "visible 1") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug).WithPrefix("engine")
	l.Infof("hello")
	if !strings.Contains(buf.String(), "engine") {
		t.Fatalf("expected prefix in output, got %q", buf.String())
	}
}

func TestLogStatus(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug)
	l.LogStatus("GET", "/x", httperr.NoMatch(), time.Millisecond)
	if !strings.Contains(buf.String(), "INFO") || !strings.Contains(buf.String(), "404") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default() should return the same instance")
	}
}
