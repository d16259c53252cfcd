package print

import (
	"capsule/capsuleos/kernel"
	"capsule/capsuleos/proto"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the print driver's Prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Commands *prometheus.CounterVec
	Bytes    prometheus.Counter
	Allows   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capsule_print_commands_total",
				Help: "Print driver commands by command and result",
			},
			[]string{"command", "result"},
		),
		Bytes: f.NewCounter(prometheus.CounterOpts{
			Name: "capsule_print_bytes_total",
			Help: "Bytes forwarded to the log sink",
		}),
		Allows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capsule_print_allow_total",
				Help: "Read-only allow calls by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeCommand(cmd proto.Command, ret kernel.SyscallReturn) {
	if m == nil {
		return
	}
	result := "SUCCESS"
	if !ret.IsSuccess() {
		result = ret.Code().String()
	}
	label := cmd.String()
	if cmd > proto.CmdCount {
		label = "unknown"
	}
	m.Commands.WithLabelValues(label, result).Inc()
}

func (m *Metrics) observePrinted(n int) {
	if m == nil {
		return
	}
	m.Bytes.Add(float64(n))
}

func (m *Metrics) observeAllow(err error) {
	if m == nil {
		return
	}
	result := "SUCCESS"
	if err != nil {
		result = kernel.CodeOf(err).String()
	}
	m.Allows.WithLabelValues(result).Inc()
}
