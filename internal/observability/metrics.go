package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/danmuck/bits/internal/bits"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bits",
			Subsystem: "decoder",
			Name:      "transcripts_total",
			Help:      "Decoded transcripts by outcome.",
		},
		[]string{"command", "result"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bits",
			Subsystem: "decoder",
			Name:      "duration_seconds",
			Help:      "Decode and evaluate duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"command", "result"},
	)
	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bits",
			Subsystem: "decoder",
			Name:      "packets_total",
			Help:      "Packets decoded, by packet type.",
		},
		[]string{"type"},
	)
	inputBits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bits",
			Subsystem: "decoder",
			Name:      "input_bits",
			Help:      "Size of decoded transcripts in bits.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(decodes, decodeDuration, packets, inputBits)
	})
}

// ResultLabel maps a decode or evaluation error onto a bounded label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, bits.ErrFormat):
		return "format"
	case errors.Is(err, bits.ErrTruncated):
		return "truncated"
	case errors.Is(err, bits.ErrOverflow):
		return "overflow"
	case errors.Is(err, bits.ErrSemantic):
		return "semantic"
	case errors.Is(err, bits.ErrDepthExceeded):
		return "depth"
	case errors.Is(err, bits.ErrInputTooLarge):
		return "too_large"
	default:
		return "error"
	}
}

// RecordDecode records one transcript. p may be nil when decoding failed.
func RecordDecode(command string, p *bits.Packet, sizeBits int, err error, duration time.Duration) {
	RegisterMetrics()
	result := ResultLabel(err)
	decodes.WithLabelValues(command, result).Inc()
	decodeDuration.WithLabelValues(command, result).Observe(duration.Seconds())
	if sizeBits > 0 {
		inputBits.Observe(float64(sizeBits))
	}
	if p == nil {
		return
	}
	p.Walk(func(node *bits.Packet, _ int) bool {
		packets.WithLabelValues(node.Type.String()).Inc()
		return true
	})
}

// WriteTextfile dumps every registered metric for a node_exporter textfile
// collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
