package gateway

import (
	"time"

	"github.com/apigw/backend/internal/infrastructure/config"
)

// DeprecationVerdict is the gate's decision for one request. When Deprecated
// is true the transport layer annotates the response with the sunset date,
// phase marker and migration guide.
type DeprecationVerdict struct {
	Deprecated        bool
	Phase             string
	SunsetDate        time.Time
	MigrationGuideURL string
}

// DeprecationGate enforces the phased retirement of legacy branch_id
// filtering: a tenant-scoped credential combined with a caller-supplied
// branch selector. Branch-scoped credentials never trigger it, since their
// selector is ignored outright and carries no legacy signal.
//
// The gate holds its config by value. The phase advances warning →
// soft_enforcement → hard_deprecation only through an operator restart,
// so a verdict never flips mid-process.
type DeprecationGate struct {
	cfg config.DeprecationConfig
}

// NewDeprecationGate creates a gate from the process deprecation config
func NewDeprecationGate(cfg config.DeprecationConfig) *DeprecationGate {
	return &DeprecationGate{cfg: cfg}
}

// Phase returns the active deprecation phase
func (g *DeprecationGate) Phase() string {
	return g.cfg.Phase
}

// Evaluate decides whether a request exhibiting legacy usage may proceed.
// optIn reflects the X-Allow-Legacy-Filtering header, which is honored only
// during soft_enforcement.
func (g *DeprecationGate) Evaluate(legacyUsage, optIn bool) (*DeprecationVerdict, error) {
	if !legacyUsage {
		return &DeprecationVerdict{Phase: g.cfg.Phase}, nil
	}

	verdict := &DeprecationVerdict{
		Deprecated:        true,
		Phase:             g.cfg.Phase,
		SunsetDate:        g.cfg.SunsetDate,
		MigrationGuideURL: g.cfg.MigrationGuideURL,
	}

	switch g.cfg.Phase {
	case config.PhaseWarning:
		return verdict, nil
	case config.PhaseSoftEnforcement:
		if optIn {
			return verdict, nil
		}
		return nil, deprecatedFeatureError(g.cfg.MigrationGuideURL)
	case config.PhaseHardDeprecation:
		return nil, featureRemovedError(g.cfg.MigrationGuideURL)
	default:
		// Unknown phases are rejected by config validation; treat a stray
		// value like the strictest phase rather than silently allowing.
		return nil, featureRemovedError(g.cfg.MigrationGuideURL)
	}
}
