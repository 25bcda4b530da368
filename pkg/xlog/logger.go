package xlog

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is the set of all log levels.
type LogLevel int8

const (
	// CRITICAL is the lowest log level. Will exit the program.
	CRITICAL LogLevel = iota - 1

	// ERROR is for errors, but does not fatal. Only indicates potential troubles.
	ERROR

	// WARN warns about potential errors or problems.
	WARN

	// INFO just indicates information.
	INFO

	// DEBUG is debug-level logging.
	DEBUG
)

// String returns a single-character representation of LogLevel.
func (l LogLevel) String() string {
	switch l {
	case CRITICAL:
		return "C"
	case ERROR:
		return "E"
	case WARN:
		return "W"
	case INFO:
		return "I"
	case DEBUG:
		return "D"
	default:
		panic("unknown LogLevel")
	}
}

// ParseLogLevel parses the level names used in configuration files.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "critical", "CRITICAL":
		return CRITICAL, nil
	case "error", "ERROR":
		return ERROR, nil
	case "warn", "warning", "WARN":
		return WARN, nil
	case "info", "INFO", "":
		return INFO, nil
	case "debug", "DEBUG":
		return DEBUG, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case CRITICAL:
		return zapcore.DPanicLevel
	case ERROR:
		return zapcore.ErrorLevel
	case WARN:
		return zapcore.WarnLevel
	case DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger contains log prefix(pkg) and LogLevel.
type Logger struct {
	pkg    string
	maxLvl LogLevel
}

// NewLogger returns a Logger with pkg prefix. Loggers are shared per pkg,
// so the last call decides the level.
func NewLogger(pkg string, lvl LogLevel) *Logger {
	xlogger.mu.Lock()
	defer xlogger.mu.Unlock()

	lg, ok := xlogger.loggers[pkg]
	if !ok {
		lg = &Logger{pkg: pkg}
		xlogger.loggers[pkg] = lg
	}
	lg.maxLvl = lvl
	return lg
}

func (l *Logger) log(lvl LogLevel, txt string) {
	if lvl < CRITICAL || lvl > DEBUG {
		return
	}

	xlogger.mu.Lock()
	if l.maxLvl < lvl {
		xlogger.mu.Unlock()
		return
	}
	zl := xlogger.zl
	xlogger.mu.Unlock()

	if l.pkg != "" {
		zl = zl.Named(l.pkg)
	}
	if ce := zl.Check(lvl.zapLevel(), txt); ce != nil {
		ce.Write()
	}
}

func (l *Logger) Panic(args ...interface{}) {
	txt := fmt.Sprint(args...)
	l.log(CRITICAL, txt)
	panic(txt)
}

func (l *Logger) Panicln(args ...interface{}) {
	txt := fmt.Sprintln(args...)
	l.log(CRITICAL, txt)
	panic(txt)
}

func (l *Logger) Panicf(format string, args ...interface{}) {
	txt := fmt.Sprintf(format, args...)
	l.log(CRITICAL, txt)
	panic(txt)
}

func (l *Logger) Fatal(args ...interface{}) {
	txt := fmt.Sprint(args...)
	l.log(CRITICAL, txt)
	Sync()
	os.Exit(1)
}

func (l *Logger) Fatalln(args ...interface{}) {
	txt := fmt.Sprintln(args...)
	l.log(CRITICAL, txt)
	Sync()
	os.Exit(1)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	txt := fmt.Sprintf(format, args...)
	l.log(CRITICAL, txt)
	Sync()
	os.Exit(1)
}

func (l *Logger) Error(args ...interface{}) {
	l.log(ERROR, fmt.Sprint(args...))
}

func (l *Logger) Errorln(args ...interface{}) {
	l.log(ERROR, fmt.Sprintln(args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...))
}

func (l *Logger) Warning(args ...interface{}) {
	l.log(WARN, fmt.Sprint(args...))
}

func (l *Logger) Warningln(args ...interface{}) {
	l.log(WARN, fmt.Sprintln(args...))
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(format, args...))
}

func (l *Logger) Print(args ...interface{}) {
	l.log(INFO, fmt.Sprint(args...))
}

func (l *Logger) Println(args ...interface{}) {
	l.log(INFO, fmt.Sprintln(args...))
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(args ...interface{}) {
	l.log(INFO, fmt.Sprint(args...))
}

func (l *Logger) Infoln(args ...interface{}) {
	l.log(INFO, fmt.Sprintln(args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(args ...interface{}) {
	l.log(DEBUG, fmt.Sprint(args...))
}

func (l *Logger) Debugln(args ...interface{}) {
	l.log(DEBUG, fmt.Sprintln(args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...))
}

//////////////////////////////////////////////////////

type globalLogger struct {
	mu      sync.Mutex
	loggers map[string]*Logger
	zl      *zap.Logger
}

var xlogger = &globalLogger{
	loggers: make(map[string]*Logger),
	zl:      zap.NewNop(),
}

// SetMaxLogLevel updates logger's LogLevel.
func (l *Logger) SetMaxLogLevel(lvl LogLevel) {
	xlogger.mu.Lock()
	l.maxLvl = lvl
	xlogger.mu.Unlock()
}

// SetGlobalMaxLogLevel sets max log levels of all loggers.
func SetGlobalMaxLogLevel(lvl LogLevel) {
	xlogger.mu.Lock()
	for _, lg := range xlogger.loggers {
		lg.maxLvl = lvl
	}
	xlogger.mu.Unlock()
}

// SetZapLogger replaces the zap backend shared by all loggers.
func SetZapLogger(zl *zap.Logger) {
	xlogger.mu.Lock()
	xlogger.zl = zl
	xlogger.mu.Unlock()
}

// Sync flushes the zap backend.
func Sync() {
	xlogger.mu.Lock()
	zl := xlogger.zl
	xlogger.mu.Unlock()
	zl.Sync()
}
