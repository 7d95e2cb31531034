package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sessionOpens counts established sessions. A healthy bridge opens one every
// idle-timeout window at most; a climbing rate means sessions are being
// discarded and rebuilt.
var sessionOpens = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "actualbridge_session_opens_total",
		Help: "Total sessions established against the budget backend",
	},
)
