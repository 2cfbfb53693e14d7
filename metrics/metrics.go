package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TeamsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "portal_teams_created_total", Help: "Total teams registered"},
	)
	TeamsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "portal_teams_decided_total", Help: "Total mentor team decisions"},
		[]string{"decision"},
	)
	ProposalsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "portal_proposals_submitted_total", Help: "Total proposal submissions including resubmissions"},
	)
	ProposalsReviewed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "portal_proposals_reviewed_total", Help: "Total mentor proposal reviews"},
		[]string{"decision"},
	)
	TeamExports = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "portal_team_exports_total", Help: "Total admin CSV exports"},
	)
)

func Register() {
	prometheus.MustRegister(TeamsCreated, TeamsDecided, ProposalsSubmitted, ProposalsReviewed, TeamExports)
}
