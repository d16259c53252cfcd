package hal

// Tee returns a Logger that writes every line to each non-nil logger in
// order.
func Tee(loggers ...Logger) Logger {
	out := make(tee, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

type tee []Logger

func (t tee) WriteLineString(s string) {
	for _, l := range t {
		l.WriteLineString(s)
	}
}

func (t tee) WriteLineBytes(b []byte) {
	for _, l := range t {
		l.WriteLineBytes(b)
	}
}
