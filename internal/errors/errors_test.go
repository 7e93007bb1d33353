package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		wantKnd Kind
	}{
		{
			name:    "missing prerequisite with cause",
			err:     NewMissingPrerequisite("build output not found", errors.New("stat failed")),
			want:    "build output not found: stat failed",
			wantKnd: KindMissingPrerequisite,
		},
		{
			name:    "child process without cause",
			err:     NewChildProcess("container exited with code 2", nil),
			want:    "container exited with code 2",
			wantKnd: KindChildProcess,
		},
		{
			name:    "unknown task",
			err:     NewUnknownTask("deploy"),
			want:    `unknown task "deploy"`,
			wantKnd: KindUnknownTask,
		},
		{
			name:    "not implemented",
			err:     NewNotImplemented("install is disabled"),
			want:    "install is disabled",
			wantKnd: KindNotImplemented,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.wantKnd, KindOf(tt.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := NewChildProcess("docker run failed", nil)
	wrapped := fmt.Errorf("build: %w", base)

	assert.True(t, Is(wrapped, KindChildProcess))
	assert.False(t, Is(wrapped, KindUnknownTask))
	assert.Equal(t, KindChildProcess, KindOf(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindRuntime, KindOf(errors.New("boom")))
	assert.Equal(t, "runtime", KindOf(errors.New("boom")).String())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewRuntime("copy failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "nil is success", err: nil, wantCode: 0},
		{name: "unknown task", err: NewUnknownTask("x"), wantCode: 1},
		{name: "missing prerequisite", err: NewMissingPrerequisite("x", nil), wantCode: 1},
		{name: "plain error", err: errors.New("x"), wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, GetExitCode(tt.err))
		})
	}
}
