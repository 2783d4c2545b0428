package log

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// ANSI escape codes for text colors
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[36m"
	Bold   = "\033[1m"
)

const (
	maxFileSize    = 1 // MiB
	maxFileBackups = 2
)

var (
	logger = logrus.New()
	debug  = len(os.Getenv("DEBUG")) > 0
	// LogFile mirrors all diagnostics into a rotated file if set.
	LogFile = os.Getenv("DETACH_LOG_FILE")
)

func init() {
	Init(os.Stderr, false, false)
}

// Init configures the output of the package-level logger. Interactive
// sessions get bare messages, everything else gets timestamped lines.
func Init(out io.Writer, isTerm, useColors bool) {
	logger.SetOutput(out)
	if isTerm {
		logger.SetFormatter(&termFormatter{colors: useColors})
	} else {
		logger.SetFormatter(&plainFormatter{colors: useColors})
	}
	logger.SetLevel(logrus.InfoLevel)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.ReplaceHooks(make(logrus.LevelHooks))
	if LogFile != "" {
		logger.AddHook(&fileHook{
			w: &lumberjack.Logger{
				Filename:   LogFile,
				MaxSize:    maxFileSize,
				MaxBackups: maxFileBackups,
			},
			formatter: &plainFormatter{},
		})
	}
}

// SetOutput redirects the logger without touching its formatting.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// plainFormatter writes "[15:04:05] LEVEL message" lines for logs that
// are read later.
type plainFormatter struct {
	colors bool
}

var levelNames = map[logrus.Level]string{
	logrus.TraceLevel: "DEBUG",
	logrus.DebugLevel: "DEBUG",
	logrus.InfoLevel:  "INFO",
	logrus.WarnLevel:  "WARNING",
	logrus.ErrorLevel: "ERROR",
	logrus.FatalLevel: "FATAL",
	logrus.PanicLevel: "FATAL",
}

var levelColors = map[logrus.Level]string{
	logrus.InfoLevel:  Blue,
	logrus.WarnLevel:  Yellow,
	logrus.ErrorLevel: Red,
	logrus.FatalLevel: Red,
	logrus.PanicLevel: Red,
}

func (f *plainFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	level := levelNames[e.Level]
	if c, ok := levelColors[e.Level]; ok && f.colors {
		level = c + level + Reset
	}
	fmt.Fprintf(&b, "[%s] %s %s\n", e.Time.Format("15:04:05"), level, e.Message)
	return b.Bytes(), nil
}

type termFormatter struct {
	colors bool
}

func (f *termFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	prefix, color := "", ""
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		prefix = "debug: "
	case logrus.WarnLevel:
		prefix, color = "warning: ", Yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		prefix, color = "error: ", Red
	}
	if f.colors && color != "" {
		prefix = color + prefix + Reset
	}
	b.WriteString(prefix)
	b.WriteString(e.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

type fileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}

func Debugf(format string, a ...any) {
	logger.Debugf(format, a...)
}

func Infof(format string, a ...any) {
	logger.Infof(format, a...)
}

func Warningf(format string, a ...any) {
	logger.Warnf(format, a...)
}

func Errorf(format string, a ...any) {
	logger.Errorf(format, a...)
}

// Printf writes a message without level or timestamp, e.g. usage text.
func Printf(format string, a ...any) {
	fmt.Fprintf(logger.Out, format, a...)
}
