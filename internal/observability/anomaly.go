package observability

import (
	"github.com/rs/zerolog"
)

// AnomalyClass enumerates the non-fatal conditions the core reports.
type AnomalyClass string

const (
	// MissingReferent: an event names an order, trade or sequence that
	// does not exist.
	MissingReferent AnomalyClass = "missing_referent"
	// UnknownKind: an order-finish signal carries an out-of-range tag.
	UnknownKind AnomalyClass = "unknown_kind"
	// Preexisting: a create-path record was already present.
	Preexisting AnomalyClass = "preexisting"
)

// Anomaly is a single reported condition.
type Anomaly struct {
	Class  AnomalyClass
	Entity string
	Key    string
	Detail string
}

// AnomalyReporter logs anomalies at their class severity, counts them and
// forwards them to an optional callback. A nil reporter is a no-op.
type AnomalyReporter struct {
	logger   zerolog.Logger
	metrics  *Metrics
	onReport func(Anomaly)
}

// NewAnomalyReporter creates a reporter. metrics and onReport may be nil.
func NewAnomalyReporter(logger zerolog.Logger, metrics *Metrics, onReport func(Anomaly)) *AnomalyReporter {
	return &AnomalyReporter{
		logger:   logger,
		metrics:  metrics,
		onReport: onReport,
	}
}

// Report records one anomaly.
func (r *AnomalyReporter) Report(a Anomaly) {
	if r == nil {
		return
	}

	var ev *zerolog.Event
	if a.Class == Preexisting {
		ev = r.logger.Warn()
	} else {
		ev = r.logger.Error()
	}
	ev.Str("class", string(a.Class)).
		Str("entity", a.Entity).
		Str("key", a.Key).
		Msg(a.Detail)

	if r.metrics != nil {
		r.metrics.Anomalies.WithLabelValues(string(a.Class), a.Entity).Inc()
	}
	if r.onReport != nil {
		r.onReport(a)
	}
}
