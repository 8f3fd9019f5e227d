// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts codec activity. A nil Registerer yields working but
// unregistered collectors.
type Metrics struct {
	recordsRead     prometheus.Counter
	recordsWritten  prometheus.Counter
	recordErrors    *prometheus.CounterVec
	aggregates      prometheus.Counter
	frames          prometheus.Counter
	junkBytes       prometheus.Counter
	schemasCompiled prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		recordsRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "frf",
			Name:      "records_read_total",
			Help:      "Number of records successfully read.",
		}),
		recordsWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "frf",
			Name:      "records_written_total",
			Help:      "Number of records successfully written.",
		}),
		recordErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "frf",
			Name:      "record_errors_total",
			Help:      "Number of records rejected, by stage.",
		}, []string{"stage"}),
		aggregates: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "frf",
			Name:      "aggregates_total",
			Help:      "Number of composite aggregates emitted.",
		}),
		frames: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "frf",
			Subsystem: "framer",
			Name:      "frames_total",
			Help:      "Number of frames carved out of binary streams.",
		}),
		junkBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "frf",
			Subsystem: "framer",
			Name:      "junk_bytes_total",
			Help:      "Number of bytes discarded before a sync pattern.",
		}),
		schemasCompiled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "frf",
			Name:      "schemas_compiled_total",
			Help:      "Number of record layouts compiled.",
		}),
	}
}

// Error stages.
const (
	stageRead      = "read"
	stageWrite     = "write"
	stageAssemble  = "assemble"
	stageValidate  = "validate"
	stageFrame     = "frame"
	stageTypeMatch = "type"
)
