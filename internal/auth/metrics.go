package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_management"

// loginAttempts counts login outcomes.
// Label result: "success", "unknown_user", "bad_password" or "error".
var loginAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// tokensIssued counts signed tokens by kind (access/refresh).
var tokensIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_tokens_issued_total",
		Help:      "Total number of tokens issued, labelled by kind.",
	},
	[]string{"kind"},
)

// guardDecisions counts guard outcomes per stage.
// Labels:
//   - stage: "authenticate", "role" or "permission"
//   - outcome: "allow" or "deny"
var guardDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_guard_decisions_total",
		Help:      "Total number of route guard decisions, labelled by stage and outcome.",
	},
	[]string{"stage", "outcome"},
)
