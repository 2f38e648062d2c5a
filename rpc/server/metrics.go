package server

import (
	"fmt"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics holds the metrics of one server, labeled with its address
type serverMetrics struct {
	accepted         *metrics.Counter
	closed           *metrics.Counter
	acceptErrors     *metrics.Counter
	ioErrors         *metrics.Counter
	decodeErrors     *metrics.Counter
	violations       *metrics.Counter
	echoRequests     *metrics.Counter
	addRequests      *metrics.Counter
	requestDurations *metrics.Histogram
}

// newServerMetrics creates (or reuses) the metrics for address in set.
// A server that is created again for the same address continues the same series
func newServerMetrics(set *metrics.Set, address string) *serverMetrics {
	label := fmt.Sprintf("address=%q", address)
	name := func(metric string, extra ...string) string {
		labels := label
		for _, e := range extra {
			labels += "," + e
		}
		return fmt.Sprintf("%s{%s}", metric, labels)
	}

	return &serverMetrics{
		accepted:         set.GetOrCreateCounter(name("decho_connections_accepted_total")),
		closed:           set.GetOrCreateCounter(name("decho_connections_closed_total")),
		acceptErrors:     set.GetOrCreateCounter(name("decho_accept_errors_total")),
		ioErrors:         set.GetOrCreateCounter(name("decho_connection_errors_total")),
		decodeErrors:     set.GetOrCreateCounter(name("decho_decode_errors_total")),
		violations:       set.GetOrCreateCounter(name("decho_protocol_violations_total")),
		echoRequests:     set.GetOrCreateCounter(name("decho_requests_total", `type="echo"`)),
		addRequests:      set.GetOrCreateCounter(name("decho_requests_total", `type="add"`)),
		requestDurations: set.GetOrCreateHistogram(name("decho_request_duration_seconds")),
	}
}

// requests returns the request counter for a message type
func (m *serverMetrics) requests(t common.MessageType) *metrics.Counter {
	if t == common.MsgTAdd {
		return m.addRequests
	}
	return m.echoRequests
}
