package dogs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// DefaultFlowTTL is how long an untouched flow is kept.
const DefaultFlowTTL = 15 * time.Minute

// minSweepInterval bounds how often Run sweeps for very short TTLs.
const minSweepInterval = time.Millisecond

// FlowRegistry keeps photo flows addressable by ID so remote clients can
// drive them across requests. Flows fetch under the registry's own context,
// not the context of the request that created them.
type FlowRegistry struct {
	fetch  FetchFunc
	ttl    time.Duration
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	flows map[string]*PhotoFlow
}

// NewFlowRegistry creates a registry whose flows use fetch.
func NewFlowRegistry(fetch FetchFunc, ttl time.Duration, logger *zap.Logger) *FlowRegistry {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FlowRegistry{
		fetch:  fetch,
		ttl:    ttl,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		flows:  make(map[string]*PhotoFlow),
	}
}

// Create registers a new flow and starts its first fetch.
func (r *FlowRegistry) Create() *PhotoFlow {
	flow := NewPhotoFlow(uuid.New().String(), r.fetch, r.logger)

	r.mu.Lock()
	r.flows[flow.ID()] = flow
	r.mu.Unlock()

	flow.Start(r.ctx)
	r.logger.Debug("photo flow created", zap.String("flow_id", flow.ID()))
	return flow
}

// Get returns the flow with id.
func (r *FlowRegistry) Get(id string) (*PhotoFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

// Retry restarts the fetch of a failed flow and returns the flow as it was
// when the new fetch started.
func (r *FlowRegistry) Retry(id string) (model.FlowView, error) {
	flow, err := r.Get(id)
	if err != nil {
		return model.FlowView{}, err
	}
	_, status, err := flow.Retry(r.ctx)
	if err != nil {
		return model.FlowView{}, err
	}
	return flow.viewOf(status), nil
}

// Remove drops the flow with id, cancelling a pending fetch.
func (r *FlowRegistry) Remove(id string) {
	r.mu.Lock()
	flow, ok := r.flows[id]
	delete(r.flows, id)
	r.mu.Unlock()

	if ok {
		flow.Close()
	}
}

// Len returns the number of registered flows.
func (r *FlowRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Sweep removes flows idle since before now minus the TTL and returns how
// many were removed.
func (r *FlowRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var expired []*PhotoFlow
	for id, flow := range r.flows {
		if flow.idleSince().Before(cutoff) {
			expired = append(expired, flow)
			delete(r.flows, id)
		}
	}
	r.mu.Unlock()

	for _, flow := range expired {
		flow.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("expired photo flows removed", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps expired flows until ctx is done.
func (r *FlowRegistry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *FlowRegistry) sweepInterval() time.Duration {
	return max(r.ttl/2, minSweepInterval)
}

// Close cancels all pending fetches and forgets every flow.
func (r *FlowRegistry) Close() {
	r.cancel()

	r.mu.Lock()
	r.flows = make(map[string]*PhotoFlow)
	r.mu.Unlock()
}
