package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(_ *testing.T) {
	// Must return without exiting.
	exitErrHandler(nil, nil)
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"silent success", cli.Exit("", 0), 0, ""},
		{"usage error", cli.Exit("invalid config: missing UUID", 1), 1, "invalid config: missing UUID\n"},
		{"http error status", cli.Exit("", 2), 2, ""},
		{"recovered conflict", cli.Exit("", 3), 3, ""},
		{"wrapped", errors.Join(errors.New("context"), cli.Exit("inner", 42)), 42, "inner\n"},
		{"plain error", errors.New("dial tcp: connection refused"), 1, "Error: dial tcp: connection refused\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := report(&buf, tt.err); code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}
