package logger

import (
	"bytes"
	"testing"
)

func TestConsoleLogger_Routing(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewWriterLogger(&out, &errOut, false)

	log.Info("%d builds left...", 2)
	log.Error("trigger failed for %s", "web")
	log.Debug("hidden")

	if got := out.String(); got != "[INFO] 2 builds left...\n" {
		t.Errorf("out = %q", got)
	}
	if got := errOut.String(); got != "[ERROR] trigger failed for web\n" {
		t.Errorf("errOut = %q", got)
	}
}

func TestConsoleLogger_Verbose(t *testing.T) {
	var out bytes.Buffer
	log := NewWriterLogger(&out, &out, true)

	log.Debug("diff base %s", "abc123")

	if got := out.String(); got != "[DEBUG] diff base abc123\n" {
		t.Errorf("out = %q", got)
	}
}

func TestSilentLogger(t *testing.T) {
	var log Logger = NewSilentLogger()
	log.Info("x")
	log.Error("y")
	log.Debug("z")
}
