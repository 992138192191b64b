package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// wrapperFrames are the call frames skipped when locating the call site.
var wrapperFrames = []string{
	"github.com/sirupsen/logrus.",
	"krakenflow/logger.",
}

func isWrapperFrame(function string) bool {
	for _, prefix := range wrapperFrames {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}

// callerHook reports the first caller outside logrus and this package, so
// the caller field names reader or writer code rather than the wrappers.
type callerHook struct{}

func (*callerHook) Levels() []logrus.Level { return logrus.AllLevels }

func (*callerHook) Fire(entry *logrus.Entry) error {
	var pcs [24]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for frame, more := frames.Next(); ; frame, more = frames.Next() {
		if frame.Function != "" && !isWrapperFrame(frame.Function) {
			f := frame
			entry.Caller = &f
			return nil
		}
		if !more {
			return nil
		}
	}
}

// countingHook feeds warnings and errors into the per-component counters.
type countingHook struct{}

func (countingHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (countingHook) Fire(entry *logrus.Entry) error {
	component, ok := entry.Data[componentKey].(string)
	if !ok {
		return nil
	}
	if entry.Level == logrus.WarnLevel {
		recordWarn(component)
	} else {
		recordError(component)
	}
	return nil
}
