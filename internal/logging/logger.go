package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// New returns a JSON logger at level. When file is empty logs go to stderr so
// they never mix with command output on stdout.
//
// The level parameter can be one of: debug, info, warn, error, fatal.
func New(level string, file string) (zerolog.Logger, func(), error) {
	closer := func() {}
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer io.Writer = os.Stderr
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)
	return l, closer, nil
}

// Component tags a logger with a component name under the "cmp" key.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("cmp", name).Logger()
}
