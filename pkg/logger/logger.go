// Package logger provides namespace-scoped debug logging controlled by the
// DEBUG environment variable, following the conventions of the npm debug
// package: DEBUG=* enables everything, DEBUG=resolv:* enables a namespace
// tree, and a leading dash excludes (DEBUG=*,-templ:render).
package logger

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Logger is a debug logger bound to one namespace. The zero value is not
// usable; construct with New.
type Logger struct {
	namespace string
	enabled   bool
	color     string

	mu   sync.Mutex
	last time.Time
}

var (
	debugPatterns = strings.Split(os.Getenv("DEBUG"), ",")
	useColor      = os.Getenv("DEBUG_COLORS") != "0" && isatty.IsTerminal(os.Stderr.Fd())
)

// ANSI 256-color codes chosen to stay readable on light and dark terminals.
var palette = []string{
	"\033[38;5;33m",
	"\033[38;5;35m",
	"\033[38;5;166m",
	"\033[38;5;125m",
	"\033[38;5;37m",
	"\033[38;5;161m",
	"\033[38;5;136m",
	"\033[38;5;124m",
	"\033[38;5;28m",
	"\033[38;5;63m",
	"\033[38;5;95m",
	"\033[38;5;21m",
}

const colorReset = "\033[0m"

// New creates a Logger for the given namespace. Enablement and color are
// computed once at construction time from the environment.
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   namespaceEnabled(namespace),
		color:     namespaceColor(namespace),
		last:      time.Now(),
	}
}

// Enabled reports whether this logger writes output.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf writes a formatted line to stderr when enabled, suffixed with the
// elapsed time since the previous line from this logger.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Print writes a line to stderr when enabled.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprint(args...))
}

func (l *Logger) write(message string) {
	l.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(l.last)
	l.last = now
	l.mu.Unlock()

	if l.color != "" {
		fmt.Fprintf(os.Stderr, "%s%s%s %s +%s\n", l.color, l.namespace, colorReset, message, shortDuration(elapsed))
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, message, shortDuration(elapsed))
}

func namespaceColor(namespace string) string {
	if !useColor {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(namespace))
	return palette[h.Sum32()%uint32(len(palette))]
}

func namespaceEnabled(namespace string) bool {
	enabled := false
	for _, pattern := range debugPatterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if negated, ok := strings.CutPrefix(pattern, "-"); ok {
			if matchPattern(namespace, negated) {
				// Exclusions always win.
				return false
			}
			continue
		}
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}
	return enabled
}

func matchPattern(namespace, pattern string) bool {
	if pattern == "*" || pattern == namespace {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return strings.HasPrefix(namespace, prefix) && strings.HasSuffix(namespace[len(prefix):], suffix)
}

func shortDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
