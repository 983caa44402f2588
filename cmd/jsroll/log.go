// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

type (
	loggerContextKey struct{}

	// progress logs the completion of a step together with its elapsed time.
	progress struct {
		logger *log.Logger
		start  time.Time
	}
)

// newLogger builds the logger shared by the pipeline and the commands.
// Timestamps read "14:32:01.45".
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs "msg (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or one that
// discards everything.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*log.Logger); ok {
		return l
	}
	return log.New(io.Discard)
}
