package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanamao/directory/internal/infrastructure/observability"
)

// PaymentPoller ticks a PaymentSession on a fixed interval until the session
// reaches a terminal state or the poller is stopped.
type PaymentPoller struct {
	session  *PaymentSession
	interval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// NewPaymentPoller creates a poller for session. Call Start to begin polling.
func NewPaymentPoller(session *PaymentSession, interval time.Duration) *PaymentPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PaymentPoller{
		session:  session,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start starts polling in a goroutine.
func (p *PaymentPoller) Start() {
	if p.started.CompareAndSwap(false, true) {
		go p.run()
	}
}

// Done is closed when the polling goroutine has exited.
func (p *PaymentPoller) Done() <-chan struct{} {
	return p.done
}

// Stop cancels polling, closes the session and waits for the goroutine to
// exit. It is safe to call more than once.
func (p *PaymentPoller) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.session.Close()
	})
	if p.started.Load() {
		<-p.done
	}
}

func (p *PaymentPoller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	record := p.session.Record()
	logger := observability.LoggerFromContext(p.ctx).With().
		Str("external_id", record.ExternalID).
		Logger()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			state, err := p.session.Tick(p.ctx)
			if errors.Is(err, ErrSessionClosed) {
				return
			}
			if err != nil {
				logger.Warn().Err(err).Msg("Payment status check failed, retrying on next tick")
			}
			if state.Terminal() {
				logger.Info().Str("state", string(state)).Msg("Payment session finished")
				return
			}
		}
	}
}
