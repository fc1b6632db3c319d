package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type logEntry struct {
	level Level
	log   []byte
}

// Logger writes leveled, subsystem-tagged messages to a Backend. The zero
// value is not usable; construct one via Get.
type Logger struct {
	level        uint32
	subsystemTag string
	b            *Backend
	writeChan    chan<- logEntry
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

func (l *Logger) write(level Level, s string) {
	if level < l.Level() {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n", level, l.subsystemTag, s)
	select {
	case l.writeChan <- logEntry{level: level, log: []byte(line)}:
	default:
		// The backend isn't ready to receive: it isn't running (e.g. in
		// tests), or it is still writing an earlier line, since its
		// channel is unbuffered. Drop the line rather than block the
		// caller.
	}
}

// Tracef formats and logs a message at the trace level.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.write(LevelTrace, fmt.Sprintf(format, args...))
}

// Debugf formats and logs a message at the debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(LevelDebug, fmt.Sprintf(format, args...))
}

// Infof formats and logs a message at the info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf formats and logs a message at the warn level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf formats and logs a message at the error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, args...))
}

// Criticalf formats and logs a message at the critical level.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, fmt.Sprintf(format, args...))
}

var (
	registryMtx sync.Mutex
	backend     = NewBackend()
	registry    = make(map[string]*Logger)
)

// Get returns the Logger registered for tag, creating and registering one
// backed by the package's shared Backend if this is the first call for tag.
// Subsystems obtain their logger this way rather than constructing one
// directly, so InitLog/ParseAndSetDebugLevels can reach every subsystem by
// tag.
func Get(tag string) (*Logger, error) {
	registryMtx.Lock()
	defer registryMtx.Unlock()

	if l, ok := registry[tag]; ok {
		return l, nil
	}
	l := backend.Logger(tag)
	registry[tag] = l
	return l, nil
}

// InitLog points the package's shared backend at the given log file (all
// levels) and error log file (warn and above), and starts it running. It
// must be called once during process startup: the backend's channel is
// unbuffered, so lines logged before the backend runs are dropped.
func InitLog(logFile, errLogFile string) {
	if err := backend.AddLogFile(logFile, LevelTrace); err != nil {
		fmt.Println("failed to open log file:", err)
	}
	if err := backend.AddLogFile(errLogFile, LevelWarn); err != nil {
		fmt.Println("failed to open error log file:", err)
	}
	if err := backend.Run(); err != nil {
		fmt.Println("failed to start logging backend:", err)
	}
}

// ParseAndSetDebugLevels sets logging levels from a comma-separated
// specifier of the form "trace" (applies to every registered subsystem) or
// "SUBSYS=level,SUBSYS2=level2" (applies per subsystem).
func ParseAndSetDebugLevels(debugLevel string) error {
	levels := strings.Split(debugLevel, ",")

	if len(levels) == 1 && !strings.Contains(levels[0], "=") {
		level, ok := LevelFromString(levels[0])
		if !ok {
			return errors.Errorf("the specified debug level [%s] is invalid", levels[0])
		}
		setLevelForAll(level)
		return nil
	}

	for _, logLevelPair := range levels {
		if !strings.Contains(logLevelPair, "=") {
			return errors.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		level, ok := LevelFromString(logLevel)
		if !ok {
			return errors.Errorf("the specified debug level [%s] is invalid", logLevel)
		}

		registryMtx.Lock()
		l, exists := registry[subsysID]
		registryMtx.Unlock()
		if !exists {
			return errors.Errorf("the specified subsystem [%s] is invalid", subsysID)
		}
		l.SetLevel(level)
	}
	return nil
}

func setLevelForAll(level Level) {
	registryMtx.Lock()
	defer registryMtx.Unlock()
	for _, l := range registry {
		l.SetLevel(level)
	}
}

// SupportedSubsystems returns a sorted list of the tags of every subsystem
// logger created so far via Get.
func SupportedSubsystems() []string {
	registryMtx.Lock()
	defer registryMtx.Unlock()

	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
