package dogs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/photo"
)

// FlowState is the state of a photo-assisted add flow.
type FlowState string

// Flow states. Loading is entered on every fetch; Success is terminal until
// the flow is started again; Error leaves only through Retry.
const (
	FlowLoading FlowState = "loading"
	FlowSuccess FlowState = "success"
	FlowError   FlowState = "error"
)

// FetchFunc fetches a single photo URL.
type FetchFunc func(ctx context.Context) (string, error)

// FlowStatus is a point-in-time view of a PhotoFlow.
type FlowStatus struct {
	State FlowState
	Photo string
	Err   error
}

// PhotoFlow fetches the photo shown while a dog is being added. Only the
// newest fetch may settle the flow: results of superseded fetches are
// discarded and their contexts cancelled.
type PhotoFlow struct {
	id     string
	fetch  FetchFunc
	logger *zap.Logger

	mu        sync.Mutex
	state     FlowState
	photo     string
	err       error
	gen       uint64
	cancel    context.CancelFunc
	settled   chan struct{}
	touchedAt time.Time
}

// NewPhotoFlow creates a flow in the loading state. Call Start to fetch.
func NewPhotoFlow(id string, fetch FetchFunc, logger *zap.Logger) *PhotoFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoFlow{
		id:        id,
		fetch:     fetch,
		logger:    logger,
		state:     FlowLoading,
		settled:   make(chan struct{}),
		touchedAt: time.Now(),
	}
}

// ID returns the flow identifier.
func (f *PhotoFlow) ID() string {
	return f.id
}

// Start enters loading and launches a new fetch, superseding any pending one.
// The returned channel is closed when this fetch settles or is superseded.
func (f *PhotoFlow) Start(ctx context.Context) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startLocked(ctx)
}

// Retry starts a new fetch after a failed one. It returns ErrNotRetryable
// unless the flow is in the error state. The returned status is the loading
// state Retry entered, whatever the fetch does next.
func (f *PhotoFlow) Retry(ctx context.Context) (<-chan struct{}, FlowStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowError {
		return nil, FlowStatus{State: f.state, Photo: f.photo, Err: f.err}, ErrNotRetryable
	}
	settled := f.startLocked(ctx)
	return settled, FlowStatus{State: f.state, Photo: f.photo, Err: f.err}, nil
}

func (f *PhotoFlow) startLocked(ctx context.Context) <-chan struct{} {
	if f.cancel != nil {
		f.cancel()
	}
	// Release waiters of the superseded fetch.
	select {
	case <-f.settled:
	default:
		close(f.settled)
	}

	f.gen++
	gen := f.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	settled := make(chan struct{})

	f.state = FlowLoading
	f.photo = ""
	f.err = nil
	f.cancel = cancel
	f.settled = settled
	f.touchedAt = time.Now()

	go f.run(fetchCtx, gen, settled)

	return settled
}

func (f *PhotoFlow) run(ctx context.Context, gen uint64, settled chan struct{}) {
	photoURL, err := f.fetch(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		f.logger.Debug("discarding superseded photo fetch", zap.String("flow_id", f.id), zap.Uint64("generation", gen))
		return
	}

	if err != nil {
		f.state = FlowError
		f.err = err
	} else {
		f.state = FlowSuccess
		f.photo = photoURL
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	close(settled)
}

// Status returns the current state.
func (f *PhotoFlow) Status() FlowStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchedAt = time.Now()
	return FlowStatus{State: f.state, Photo: f.photo, Err: f.err}
}

// Wait blocks until the current fetch settles or ctx is done, then returns
// the state.
func (f *PhotoFlow) Wait(ctx context.Context) (FlowStatus, error) {
	for {
		f.mu.Lock()
		settled := f.settled
		gen := f.gen
		f.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return f.Status(), ctx.Err()
		}

		f.mu.Lock()
		current := gen == f.gen
		f.mu.Unlock()
		if current {
			return f.Status(), nil
		}
	}
}

// Close cancels a pending fetch, which then settles the flow in the error
// state.
func (f *PhotoFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// View converts the current status into its API representation.
func (f *PhotoFlow) View() model.FlowView {
	return f.viewOf(f.Status())
}

func (f *PhotoFlow) viewOf(status FlowStatus) model.FlowView {
	view := model.FlowView{ID: f.id, State: string(status.State)}
	if status.State == FlowSuccess {
		view.Photo = &model.Photo{URL: status.Photo, Breed: photo.BreedFromURL(status.Photo)}
	}
	if status.Err != nil {
		view.Error = status.Err.Error()
	}
	return view
}

func (f *PhotoFlow) idleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touchedAt
}
