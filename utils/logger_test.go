package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetVerbose_And_IsVerbose(t *testing.T) {
	// save original state and restore after test
	original := IsVerbose()
	defer SetVerbose(original)

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected IsVerbose() = true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected IsVerbose() = false after SetVerbose(false)")
	}
}

func TestVerbose_SuppressedWhenDisabled(t *testing.T) {
	original := IsVerbose()
	defer SetVerbose(original)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(newLogger().Out)

	SetVerbose(false)
	Verbose("hidden %s %d", "arg", 42)
	if buf.Len() != 0 {
		t.Errorf("expected no output when verbose disabled, got %q", buf.String())
	}
}

func TestVerbose_EmittedWhenEnabled(t *testing.T) {
	original := IsVerbose()
	defer SetVerbose(original)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(newLogger().Out)

	SetVerbose(true)
	Verbose("shown %s %d", "arg", 42)
	if !strings.Contains(buf.String(), "shown arg 42") {
		t.Errorf("expected verbose output, got %q", buf.String())
	}
}

func TestInfo_AlwaysEmitted(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(newLogger().Out)

	Info("test info %s", "message")
	if !strings.Contains(buf.String(), "test info message") {
		t.Errorf("expected info output, got %q", buf.String())
	}
}
