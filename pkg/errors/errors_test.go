package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[VBZ1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[VBZ1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("host", "warehouse.local").
				WithContext("port", 3306),
			expected: "[VBZ1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, ErrCodeConnectionFailed, tt.err.Code)
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("dial tcp 10.0.0.1:3306: connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to warehouse")

	require.NotNil(t, appErr)
	assert.Same(t, baseErr, appErr.Cause)
	assert.True(t, errors.Is(appErr, baseErr))
	assert.Contains(t, appErr.Error(), "Caused by: dial tcp")
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeQueryFailed, "inner").WithContext("query", "sales")
	outer := Wrap(inner, ErrCodeInternal, "outer")

	assert.Equal(t, "sales", outer.Context["query"])
	assert.Equal(t, ErrCodeInternal, GetErrorCode(outer))
	assert.True(t, HasCode(outer, ErrCodeQueryFailed))
}

func TestConstructors(t *testing.T) {
	t.Run("config error is critical and names the field", func(t *testing.T) {
		err := ConfigError("Missing required environment variable DB_HOST", "DB_HOST")
		assert.Equal(t, ErrCodeConfigMissing, err.Code)
		assert.Equal(t, SeverityCritical, err.Severity)
		assert.Equal(t, "DB_HOST", err.Context["field"])
	})

	t.Run("query error truncates long queries", func(t *testing.T) {
		query := fmt.Sprintf("SELECT %0300d", 1)
		err := QueryError("Query failed", query, fmt.Errorf("You have an error in your SQL syntax"))
		assert.Equal(t, ErrCodeQueryFailed, err.Code)
		assert.Len(t, err.Context["query"], 203)
		assert.NotEmpty(t, err.Suggestions)
	})

	t.Run("data shape error is a warning", func(t *testing.T) {
		err := DataShapeError("follow-up detector", "customer_tk")
		assert.Equal(t, SeverityWarning, err.Severity)
		assert.Contains(t, err.Message, `"customer_tk"`)
	})
}

func TestHasCodeThroughJoin(t *testing.T) {
	joined := errors.Join(
		DataShapeError("lapsed-client scanner", "invoice_date"),
		fmt.Errorf("plain"),
	)

	assert.True(t, HasCode(joined, ErrCodeDataShape))
	assert.False(t, HasCode(joined, ErrCodeQueryFailed))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain")))
}
