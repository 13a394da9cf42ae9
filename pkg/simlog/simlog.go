// Package simlog writes each router's per-tick activity to its own file,
// one file per router, using the fixed "{tick:5}: {message}" line format.
// A real third-party structured logger was considered and rejected here:
// the external format is a hard line-format contract on a file named after
// a stable router id, not a structured/leveled log stream, so the stdlib's
// os/fmt is the correct tool and no library in the reference corpus fits
// this narrower contract better. See DESIGN.md.
package simlog

import (
	"fmt"
	"os"
	"path/filepath"
)

// Logger writes fixed-format lines to a single router's dedicated file.
type Logger struct {
	f *os.File
}

// Open creates (or truncates) dir/{name}.log and returns a Logger writing
// to it. The caller must Close it when the simulation ends.
func Open(dir, name string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("simlog: create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("simlog: create %s: %w", path, err)
	}
	return &Logger{f: f}, nil
}

// Logf writes one "{tick:5}: {message}" line.
func (l *Logger) Logf(tick int, format string, args ...any) {
	if l == nil || l.f == nil {
		return
	}
	fmt.Fprintf(l.f, "%5d: %s\n", tick, fmt.Sprintf(format, args...))
}

// Close releases the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}
