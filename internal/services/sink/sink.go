// Package sink persists the final answer of a run.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrExists = errors.New("sink: destination exists")

type Receipt struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

type Sink interface {
	Write(ctx context.Context, path, content string, overwrite bool) (Receipt, error)
}

// File writes answers to the local filesystem, creating parent directories.
type File struct{}

func (File) Write(ctx context.Context, path, content string, overwrite bool) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("abs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Receipt{}, fmt.Errorf("mkdir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(abs, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Receipt{}, fmt.Errorf("%w: %s", ErrExists, abs)
		}
		return Receipt{}, fmt.Errorf("open: %w", err)
	}
	n, err := f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("write: %w", err)
	}
	return Receipt{Path: abs, Bytes: n}, nil
}
