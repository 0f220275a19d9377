// Package logging builds the process logger.
//
// Every package logs through [logr.Logger] taken from the context with
// [logr.FromContextOrDiscard]; this package supplies the zap-backed sink.
package logging

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger.
type Options struct {
	// Verbose enables debug output (logr V(1)).
	Verbose bool
	// JSON forces the JSON encoder. When false the encoder is picked from
	// whether Output is a terminal.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates a logr.Logger backed by zap and returns a flush function.
func New(opts Options) (logr.Logger, func()) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	var encoder zapcore.Encoder
	if !opts.JSON && isTerminal(out) {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	zl := zap.New(core)

	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
