package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields mirrors logrus.Fields
type Fields map[string]interface{}

// Log is the process logger. Entries carrying a "component" field feed the
// per-component warning and error counters.
type Log struct {
	*logrus.Logger
}

// Entry is a logrus entry whose With* helpers keep returning *Entry.
type Entry struct {
	*logrus.Entry
}

const componentKey = "component"

// logFileMaxSizeMB is the size at which lumberjack rotates the log file.
const logFileMaxSizeMB = 100

var globalLogger = Logger()

// Logger builds a JSON logger at LOG_LEVEL (info when unset or invalid).
func Logger() *Log {
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetFormatter(jsonFormatter())
	l.SetLevel(logrus.InfoLevel)
	if lvl, err := parseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		l.SetLevel(lvl)
	}
	l.AddHook(&callerHook{})
	l.AddHook(countingHook{})
	return &Log{Logger: l}
}

func GetLogger() *Log {
	return globalLogger
}

// parseLevel accepts logrus level names plus "report", an alias for info.
func parseLevel(level string) (logrus.Level, error) {
	switch level = strings.ToLower(strings.TrimSpace(level)); level {
	case "":
		return logrus.InfoLevel, fmt.Errorf("empty log level")
	case "report":
		return logrus.InfoLevel, nil
	default:
		return logrus.ParseLevel(level)
	}
}

func callerPrettyfier(f *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

func formatterFor(format string) (logrus.Formatter, error) {
	switch format {
	case "json", "":
		return jsonFormatter(), nil
	case "text":
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		}, nil
	}
	return nil, fmt.Errorf("invalid log format '%s'", format)
}

// outputFor maps "stdout", "stderr" or a file path to a writer. Files are
// rotated by lumberjack when maxAge (days) is positive.
func outputFor(output string, maxAge int) (io.Writer, error) {
	switch output {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if maxAge > 0 {
		return &lumberjack.Logger{
			Filename: output,
			MaxAge:   maxAge,
			MaxSize:  logFileMaxSizeMB,
			Compress: true,
		}, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", output, err)
	}
	return file, nil
}

// Configure applies the logging section of the config. LOG_LEVEL wins over
// level.
func (l *Log) Configure(level string, format string, output string, maxAge int) error {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level '%s'", level)
	}
	formatter, err := formatterFor(format)
	if err != nil {
		return err
	}
	w, err := outputFor(output, maxAge)
	if err != nil {
		return err
	}

	l.SetLevel(lvl)
	l.SetFormatter(formatter)
	l.SetOutput(w)
	l.SetReportCaller(true)
	return nil
}

func envFields(envs []string) logrus.Fields {
	fields := make(logrus.Fields, len(envs))
	for _, env := range envs {
		fields[env] = os.Getenv(env)
	}
	return fields
}

func (l *Log) entry() *logrus.Entry { return logrus.NewEntry(l.Logger) }

func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.entry().WithField(componentKey, component)}
}

func (l *Log) WithFields(fields Fields) *Entry {
	return &Entry{Entry: l.entry().WithFields(logrus.Fields(fields))}
}

func (l *Log) WithError(err error) *Entry {
	return &Entry{Entry: l.entry().WithError(err)}
}

// WithEnv attaches the current values of the named environment variables.
func (l *Log) WithEnv(envs ...string) *Entry {
	return &Entry{Entry: l.entry().WithFields(envFields(envs))}
}

func (e *Entry) WithComponent(component string) *Entry {
	return &Entry{Entry: e.Entry.WithField(componentKey, component)}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields))}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{Entry: e.Entry.WithField(key, value)}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}

func (e *Entry) WithEnv(envs ...string) *Entry {
	return &Entry{Entry: e.Entry.WithFields(envFields(envs))}
}

// Metric logs one numeric gauge of the entry's component and forwards it to
// CloudWatch when that is enabled.
func (e *Entry) Metric(name string, value float64, fields Fields) {
	component, _ := e.Data[componentKey].(string)
	e.WithFields(fields).WithFields(Fields{"metric": name, "value": value}).Info("metric")

	dims := []cwtypes.Dimension{{Name: aws.String("Component"), Value: aws.String(component)}}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(s)})
		}
	}
	publishMetrics(context.Background(), []cwtypes.MetricDatum{
		datum(name, cwtypes.StandardUnitCount, value, dims...),
	})
}

// LogPerformanceEntry logs how long an operation took.
func LogPerformanceEntry(entry *Entry, component string, operation string, duration time.Duration, fields Fields) {
	out := Fields{
		"duration_ms": float64(duration.Microseconds()) / 1e3,
		"operation":   operation,
	}
	for k, v := range fields {
		out[k] = v
	}
	entry.WithComponent(component).WithFields(out).Info("performance metric")
}

// LogDataFlowEntry logs records handed from one pipeline stage to the next.
func LogDataFlowEntry(entry *Entry, source string, destination string, recordCount int, dataType string) {
	entry.WithFields(Fields{
		"source":       source,
		"destination":  destination,
		"record_count": recordCount,
		"data_type":    dataType,
		"flow_type":    "data_flow",
	}).Info("data flow metric")
}
