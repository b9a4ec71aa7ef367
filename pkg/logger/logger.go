package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/perarneng/getstatements/pkg/interfaces"
)

type ColorLogger struct {
	out     io.Writer
	verbose bool
}

func NewLogger(verbose bool) interfaces.Logger {
	return &ColorLogger{out: color.Output, verbose: verbose}
}

// NewWriterLogger logs to w, used by tests and when stdout is redirected.
func NewWriterLogger(w io.Writer, verbose bool) interfaces.Logger {
	return &ColorLogger{out: w, verbose: verbose}
}

// Discard returns a logger that drops everything.
func Discard() interfaces.Logger {
	return &ColorLogger{out: io.Discard}
}

func (l *ColorLogger) log(level, message string, colorFunc func(...interface{}) string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.out, "%s %s %s\n", timestamp, colorFunc(level), message)
}

func (l *ColorLogger) Info(message string) {
	l.log("INFO", message, color.New(color.FgBlue).SprintFunc())
}

func (l *ColorLogger) Success(message string) {
	l.log("OK", message, color.New(color.FgGreen).SprintFunc())
}

func (l *ColorLogger) Error(message string) {
	l.log("ERROR", message, color.New(color.FgRed).SprintFunc())
}

func (l *ColorLogger) Warn(message string) {
	l.log("WARN", message, color.New(color.FgYellow).SprintFunc())
}

func (l *ColorLogger) Debug(message string) {
	if !l.verbose {
		return
	}
	l.log("DEBUG", message, color.New(color.FgCyan).SprintFunc())
}
