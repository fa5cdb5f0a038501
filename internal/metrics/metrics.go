// Package metrics defines the Prometheus instruments exposed on the ops
// listener. All instruments are registered on the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal counts free-text catalog searches, partitioned by
	// whether the catalog returned any candidates.
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema_bot",
		Name:      "searches_total",
		Help:      "Free-text catalog searches handled.",
	}, []string{"outcome"}) // found|empty

	// SelectionsTotal counts movie selections that produced a detail view.
	SelectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinema_bot",
		Name:      "selections_total",
		Help:      "Movie selections resolved to a detail view.",
	})

	// PaginationTotal counts page navigations, partitioned by content kind.
	PaginationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema_bot",
		Name:      "pagination_total",
		Help:      "Page navigations on paged views.",
	}, []string{"kind"}) // history|stats

	// HandlerErrorsTotal counts faults contained at the handler boundary,
	// partitioned by event class.
	HandlerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema_bot",
		Name:      "handler_errors_total",
		Help:      "Faults contained at the update-handler boundary.",
	}, []string{"event"}) // command|search|movie|pagination
)
