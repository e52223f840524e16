package emitter

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/drblury/eventbind/internal/compiler"
	loggingpkg "github.com/drblury/eventbind/internal/runtime/logging"
)

// Sink receives generated files.
type Sink interface {
	Write(name string, data []byte) error
}

// FsSink writes files into a directory of an afero filesystem.
type FsSink struct {
	fs  afero.Fs
	dir string
}

func NewFsSink(fs afero.Fs, dir string) *FsSink {
	return &FsSink{fs: fs, dir: dir}
}

// Write creates the directory if needed and replaces name inside it.
func (s *FsSink) Write(name string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	target := filepath.Join(s.dir, name)
	if err := afero.WriteFile(s.fs, target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

// Emit generates the artifacts for result and writes each one to sink.
func Emit(result *compiler.Result, opts Options, sink Sink) ([]Artifact, error) {
	if sink == nil {
		return nil, errors.New("eventbind: sink is required")
	}
	logger := loggingpkg.OrDiscard(opts.Logger)

	artifacts, err := Generate(result, opts)
	if err != nil {
		logger.Error("Generating bindings failed", err, loggingpkg.LogFields{"package": opts.Package})
		return nil, err
	}
	for _, a := range artifacts {
		if err := sink.Write(a.Name, a.Data); err != nil {
			return nil, err
		}
		logger.Debug("Wrote artifact", loggingpkg.LogFields{"file": a.Name, "bytes": len(a.Data)})
	}
	logger.Info("Generated bindings", loggingpkg.LogFields{
		"package":  opts.Package,
		"strategy": result.Strategy.String(),
		"types":    len(result.Types),
		"methods":  result.MethodCount(),
	})
	return artifacts, nil
}
