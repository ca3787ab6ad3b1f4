package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestColorFunc(t *testing.T) {
	originalSupportsColor := supportsColor
	defer func() {
		supportsColor = originalSupportsColor
	}()

	supportsColor = false
	assert.Equal(t, "plain", ColorSuccess("plain"))
	assert.Equal(t, "plain", ColorError("plain"))

	supportsColor = true
	assert.NotEqual(t, "plain", ColorSuccess("plain"))
	assert.Contains(t, ColorError("plain"), "plain")
}

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "authentication failure points at setup",
			message: "MF1003: Authentication failed for user",
			want:    "martforge setup",
		},
		{
			name:    "missing object points at seed",
			message: `relation "raw_events" does not exist`,
			want:    "martforge seed",
		},
		{
			name:    "cycle points at refs",
			message: "dependency cycle involving mart_a -> mart_b",
			want:    "ref()",
		},
		{
			name:    "unknown message has no suggestion",
			message: "something else entirely",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getSuggestion(tt.message)
			if tt.want == "" {
				assert.Empty(t, got)
			} else {
				assert.Contains(t, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
