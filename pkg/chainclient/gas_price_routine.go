package chainclient

import (
	"context"
	"sync"
	"time"
)

// GasPriceRoutine periodically refreshes the client's gas price
type GasPriceRoutine struct {
	ctx      context.Context
	client   *Client
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex
	running  bool
}

// NewGasPriceRoutine creates a new gas price refresh routine
func NewGasPriceRoutine(ctx context.Context, client *Client, interval time.Duration) *GasPriceRoutine {
	return &GasPriceRoutine{
		ctx:      ctx,
		client:   client,
		interval: interval,
	}
}

// Start begins the periodic updates. The first update happens synchronously so that
// trades submitted right after startup are priced.
func (r *GasPriceRoutine) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	r.update()

	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	r.running = true

	go r.run(r.stopChan, r.doneChan)
}

// Stop halts the periodic updates and waits for the goroutine to exit
func (r *GasPriceRoutine) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopChan)
	done := r.doneChan
	r.stopChan = nil
	r.running = false
	r.mu.Unlock()

	<-done
}

// IsRunning returns whether the routine is currently running
func (r *GasPriceRoutine) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *GasPriceRoutine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.update()
		case <-stop:
			return
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *GasPriceRoutine) update() {
	gasPrice, err := r.client.UpdateGasPrice(r.ctx)
	if err != nil {
		r.client.logger.ErrorWithChain(r.client.Label, "Failed to update gas price: %v", err)
		return
	}
	r.client.logger.DebugWithChain(r.client.Label, "Gas price updated to %s wei", gasPrice)
}
