package xlog

import (
	"io"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type stdLogWriter struct {
	l *Logger
}

func (s stdLogWriter) Write(b []byte) (int, error) {
	s.l.log(INFO, string(b))
	return len(b), nil
}

// NewZapLogger returns a console-encoded zap logger writing to w.
// Level filtering is done by each xlog Logger, so the core accepts everything.
func NewZapLogger(w io.Writer) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core)
}

func init() {
	// by default, log-output to stderr
	SetZapLogger(NewZapLogger(os.Stderr))

	// to overwrite standard logger
	log.SetFlags(0)
	log.SetPrefix("")

	wr := stdLogWriter{l: NewLogger("", INFO)}
	log.SetOutput(wr)
}
