package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	// codecOperations counts load and save calls per format.
	// Labels: format, op (load, save), result (ok, error)
	codecOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfgdoc",
		Name:      "codec_operations_total",
		Help:      "Document load and save operations by format",
	}, []string{"format", "op", "result"})

	// mergeOperations counts successful merges.
	// Labels: strategy
	mergeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfgdoc",
		Name:      "merge_operations_total",
		Help:      "Merges applied to documents by strategy",
	}, []string{"strategy"})

	// versionOperations counts ledger operations.
	// Labels: op (enable, create, rollback, clear, import, resume), result (ok, error)
	versionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cfgdoc",
		Name:      "version_operations_total",
		Help:      "Version ledger operations",
	}, []string{"op", "result"})
)

func result(ok bool) string {
	if ok {
		return resultOK
	}
	return resultError
}
