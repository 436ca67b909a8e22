package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// requestTransitions counts applied lifecycle edges by transition tag.
	requestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_request_transitions_total",
			Help: "Request lifecycle transitions applied, by transition.",
		},
		[]string{"transition"},
	)

	// settlements counts confirmation attempts by outcome
	// (ok, zero, missing_parties, same_user, insufficient_funds, error).
	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_settlements_total",
			Help: "Chat confirmations by settlement outcome.",
		},
		[]string{"outcome"},
	)

	// skillpointsTransferred sums skillpoints moved by committed settlements.
	skillpointsTransferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_skillpoints_transferred_total",
			Help: "Skillpoints moved from creators to accepters.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestTransitions, settlements, skillpointsTransferred)
}
