// Package submit dispatches a built plan to direct broadcast or to the bundle relay.
package submit

import (
	"context"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
)

// Plan is a single-use submission plan
type Plan interface {
	UseRelay() bool
}

// Submitter sends a plan and reports its outcome
type Submitter[P Plan] interface {
	Submit(ctx context.Context, plan P) (*models.SubmissionResult, error)
}

// Router picks the submitter for each plan. It holds no chain-specific logic.
type Router[P Plan] struct {
	direct Submitter[P]
	relay  Submitter[P]
	logger logger.Logger
}

// NewRouter creates a router. relay may be nil when no relay is configured.
func NewRouter[P Plan](direct, relay Submitter[P], log logger.Logger) *Router[P] {
	return &Router[P]{direct: direct, relay: relay, logger: log}
}

// RelayEnabled reports whether relay plans can be served
func (r *Router[P]) RelayEnabled() bool {
	return r.relay != nil
}

// Submit sends plan through the relay when it asks for one, else directly.
func (r *Router[P]) Submit(ctx context.Context, plan P) (*models.SubmissionResult, error) {
	if plan.UseRelay() {
		if r.relay == nil {
			return nil, &models.ConfigError{Field: "USE_JITO", Reason: "relay submission requested but no relay is configured"}
		}
		r.logger.Debug("Submitting plan through the relay")
		return r.relay.Submit(ctx, plan)
	}
	if r.direct == nil {
		return nil, &models.ConfigError{Field: "USE_JITO", Reason: "direct submission requested but no direct submitter is configured"}
	}
	r.logger.Debug("Submitting plan directly")
	return r.direct.Submit(ctx, plan)
}
