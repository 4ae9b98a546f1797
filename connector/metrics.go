package connector

import (
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
)

var (
	connectionsOpened      = metrics.GetOrCreateCounter(`dkvc_connections_opened_total`)
	connectionsInvalidated = metrics.GetOrCreateCounter(`dkvc_connections_invalidated_total`)
	rootRetries            = metrics.GetOrCreateCounter(`dkvc_root_retries_total`)
	timeoutResets          = metrics.GetOrCreateCounter(`dkvc_timeout_resets_total`)

	// openTimer measures how long opening a connection (backend included) takes
	openTimer = gometrics.GetOrRegisterTimer("dkvc.connection.open", gometrics.DefaultRegistry)
)

// WriteMetrics writes the connector counters in Prometheus text format,
// followed by a dump of the connection open timer.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
	gometrics.WriteOnce(gometrics.DefaultRegistry, w)
}
