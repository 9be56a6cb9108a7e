package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		errText  string
		expected FailureCause
	}{
		{
			name:     "bot detection via sign in",
			errText:  "ERROR: Sign in to confirm you're not a bot",
			expected: CauseBotDetection,
		},
		{
			name:     "forbidden via 403",
			errText:  "HTTP Error 403: Forbidden",
			expected: CauseForbidden,
		},
		{
			name:     "private content",
			errText:  "This video is private",
			expected: CausePrivate,
		},
		{
			name:     "socket timeout",
			errText:  "Connection timed out after 30s",
			expected: CauseTimeout,
		},
		{
			name:     "unknown failure",
			errText:  "something unexpected happened",
			expected: CauseUnknown,
		},
		{
			name:     "case insensitive",
			errText:  "BOT check required",
			expected: CauseBotDetection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyFailure(tt.errText))
		})
	}
}

func TestGuidanceFor_AlwaysReturnsAdvice(t *testing.T) {
	assert.NotEmpty(t, GuidanceFor("403 forbidden"))
	assert.NotEmpty(t, GuidanceFor("no idea what happened"))
	assert.Contains(t, GuidanceFor("timed out"), "Connection timeout")
}
