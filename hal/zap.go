package hal

import "go.uber.org/zap"

// ZapLogger forwards log lines to a zap logger at Info level.
type ZapLogger struct {
	l *zap.Logger
}

// NewZapLogger returns a Logger writing through l. Lines are tagged with
// source so they can be told apart from the kernel's own events.
func NewZapLogger(l *zap.Logger, source string) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{l: l.With(zap.String("source", source))}
}

func (z *ZapLogger) WriteLineString(s string) {
	z.l.Info(s)
}

func (z *ZapLogger) WriteLineBytes(b []byte) {
	z.l.Info(string(b))
}
