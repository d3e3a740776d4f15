package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// ReportSink receives the formatted report lines a Tracker produces. The
// tracker itself performs no I/O; presentation concerns such as colorization
// or log routing belong entirely to the sink implementation.
type ReportSink interface {
	Emit(line string)
}

// NopSink discards every report line. Trackers constructed without a sink
// use it so counting still works silently.
type NopSink struct{}

// Emit discards the line.
func (NopSink) Emit(string) {}

// LogSink routes report lines through a structured zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the ReportSink interface. A nil logger is
// replaced with a no-op logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Emit logs the line at info level.
func (s *LogSink) Emit(line string) {
	s.logger.Info(line)
}

// WriterSink writes report lines to an io.Writer, one line per report.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink builds a sink over w. A nil writer defaults to stdout.
func NewWriterSink(w io.Writer) *WriterSink {
	if w == nil {
		w = os.Stdout
	}
	return &WriterSink{w: w}
}

// Emit writes the line followed by a newline. Write failures are swallowed;
// progress output is advisory and must never fail the pipeline.
func (s *WriterSink) Emit(line string) {
	fmt.Fprintln(s.w, line)
}

// ConsoleSink writes colorized report lines to a terminal. Whether color is
// actually applied is decided here, not in the tracker: the color package
// disables itself when stdout is not a TTY or NO_COLOR is set.
type ConsoleSink struct {
	c *color.Color
	w io.Writer
}

// NewConsoleSink builds a console sink with the given color. A nil color
// prints unstyled text; a nil writer defaults to stdout.
func NewConsoleSink(c *color.Color, w io.Writer) *ConsoleSink {
	if c == nil {
		c = color.New()
	}
	if w == nil {
		w = color.Output
	}
	return &ConsoleSink{c: c, w: w}
}

// Emit writes the styled line followed by a newline.
func (s *ConsoleSink) Emit(line string) {
	s.c.Fprintln(s.w, line)
}
