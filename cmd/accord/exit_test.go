package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(_ *testing.T) {
	exitErrHandler(nil, nil)
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{
			name:     "success no message",
			err:      cli.Exit("", 0),
			wantCode: 0,
		},
		{
			name:     "hard failure with message",
			err:      cli.Exit("Proposal not ready", 1),
			wantCode: 1,
			wantOut:  "Proposal not ready\n",
		},
		{
			name:     "soft failure silent",
			err:      cli.Exit("", 2),
			wantCode: 2,
		},
		{
			name:     "partial batch",
			err:      cli.Exit("", 3),
			wantCode: 3,
		},
		{
			name:     "wrapped exit coder",
			err:      errors.Join(errors.New("context"), cli.Exit("inner", 42)),
			wantCode: 42,
			wantOut:  "inner\n",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			wantCode: 1,
			wantOut:  "Error: boom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := report(&buf, tt.err)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}
