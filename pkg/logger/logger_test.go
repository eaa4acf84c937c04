package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		pattern   string
		want      bool
	}{
		{"wildcard all", "resolv:scopes", "*", true},
		{"exact", "resolv:scopes", "resolv:scopes", true},
		{"prefix wildcard", "resolv:scopes", "resolv:*", true},
		{"suffix wildcard", "outputs:plan", "*:plan", true},
		{"middle wildcard", "outputs:plan", "out*plan", true},
		{"no match", "stamps:apply", "resolv:*", false},
		{"no wildcard no match", "stamps:apply", "stamps", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPattern(tt.namespace, tt.pattern))
		})
	}
}

func TestShortDuration(t *testing.T) {
	assert.Equal(t, "500ns", shortDuration(500))
	assert.Equal(t, "3µs", shortDuration(3000))
	assert.Equal(t, "12ms", shortDuration(12e6))
	assert.Equal(t, "2.0s", shortDuration(2e9))
}

func TestDisabledLoggerIsQuiet(t *testing.T) {
	l := New("test:never-enabled-namespace")
	assert.False(t, l.Enabled())
	// Must not panic even when disabled.
	l.Printf("ignored %d", 1)
	l.Print("ignored")
}
