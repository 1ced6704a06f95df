package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoutError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an error returned by a search client
	originalErr := errors.New("connection refused")

	// When: wrapping it as a backend error
	err := BackendError("search failed", originalErr)

	// Then: the client error is still reachable
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestScoutError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *ScoutError
		expected string
	}{
		{
			name:     "no cause",
			err:      New(ErrCodeConfigNotFound, "config file not found", nil),
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "with cause",
			err:      New(ErrCodeBackendFailed, "search failed", errors.New("timeout")),
			expected: "[ERR_301_BACKEND_FAILED] search failed: timeout",
		},
		{
			name:     "wrapped keeps single message",
			err:      Wrap(ErrCodeInternal, errors.New("boom")),
			expected: "[ERR_501_INTERNAL] boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestScoutError_Is_MatchesByCode(t *testing.T) {
	err := DriverError(ErrCodeDriverUnknown, "solr", nil)

	assert.True(t, errors.Is(err, ErrDriverUnknown))
	assert.False(t, errors.Is(err, ErrDriverInit))
}

func TestScoutError_Is_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("resolve engine: %w", DriverError(ErrCodeDriverInit, "elasticsearch", errors.New("no hosts")))

	assert.True(t, errors.Is(err, ErrDriverInit))
	assert.True(t, IsConfiguration(err))
	assert.Equal(t, ErrCodeDriverInit, GetCode(err))
}

func TestScoutError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeBulkRejected, "bulk rejected", nil).
		WithDetail("index", "users").
		WithDetail("failed", "3")

	assert.Equal(t, "users", err.Details["index"])
	assert.Equal(t, "3", err.Details["failed"])
}

func TestScoutError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeIndexLocked, "index locked", nil).
		WithSuggestion("Stop the other scout process")

	assert.Equal(t, "Stop the other scout process", err.Suggestion)
}

func TestScoutError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeDriverUnknown, CategoryConfig},
		{ErrCodeRawQueryUnsupported, CategoryConfig},
		{ErrCodeRepositoryFailed, CategoryRepository},
		{ErrCodeTableNotFound, CategoryRepository},
		{ErrCodeBackendFailed, CategoryBackend},
		{ErrCodeBulkRejected, CategoryBackend},
		{ErrCodeInvalidPage, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{"BAD", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.wantCategory, New(tt.code, "test message", nil).Category)
		})
	}
}

func TestScoutError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeDriverUnknown, SeverityFatal},
		{ErrCodeDriverInit, SeverityFatal},
		{ErrCodeIndexLocked, SeverityWarning},
		{ErrCodeBackendFailed, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.wantSeverity, New(tt.code, "test message", nil).Severity)
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestDriverError_Messages(t *testing.T) {
	unknown := DriverError(ErrCodeDriverUnknown, "solr", nil)
	failed := DriverError(ErrCodeDriverInit, "bleve", errors.New("locked"))

	assert.Contains(t, unknown.Message, `unknown search driver "solr"`)
	assert.Equal(t, "solr", unknown.Details["driver"])
	assert.Contains(t, failed.Message, `"bleve"`)
	assert.True(t, IsFatal(failed))
}

func TestIsBackend(t *testing.T) {
	assert.True(t, IsBackend(BackendError("search failed", nil)))
	assert.False(t, IsBackend(ConfigError("bad", nil)))
	assert.False(t, IsBackend(errors.New("plain")))
	assert.False(t, IsBackend(nil))
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Empty(t, GetCode(errors.New("plain")))
	assert.Empty(t, GetCategory(nil))
}
