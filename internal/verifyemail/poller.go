// Package verifyemail drives the email verification page: one
// verification call per mount and a delayed redirect to the dashboard.
package verifyemail

import (
	"context"
	"sync"
	"time"

	"github.com/redmonkez12/go-saas-starter/internal/authclient"
	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

const RedirectDelay = 3000 * time.Millisecond

// Messages shown when verification does not succeed.
const (
	MsgTokenMissing = "Verification token is missing."
	MsgFailed       = "Verification failed"
	MsgUnexpected   = "An unexpected error occurred during verification."
)

// Status is the outcome shown by the verification page.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

// Verifier redeems a verification token.
type Verifier interface {
	VerifyEmail(ctx context.Context, token string) (*user.User, error)
}

// State is what the verification page shows.
type State struct {
	Status Status
	Error  string
	User   *user.User
}

// Poller redeems one verification token per mount and redirects to the
// dashboard after RedirectDelay on success.
type Poller struct {
	verifier Verifier
	nav      flow.Navigator
	clock    Clock
	locale   string
	logger   *logging.Logger

	// navMu is held across the unmount check and the navigation so that
	// Unmount returns only once no navigation can still happen.
	navMu sync.Mutex

	mu        sync.Mutex
	state     State
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	timer     Timer
	done      chan struct{}
	doneOnce  sync.Once
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces the wall clock used for scheduling.
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

func WithLogger(l *logging.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// New creates a poller for one page load. Call Mount to start it.
func New(verifier Verifier, nav flow.Navigator, locale string, opts ...Option) *Poller {
	p := &Poller{
		verifier: verifier,
		nav:      nav,
		clock:    realClock{},
		locale:   locale,
		logger:   logging.Discard(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DashboardURL is where a successful verification lands.
func (p *Poller) DashboardURL() string {
	return i18n.Path(p.locale, "/dashboard")
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the poller reaches a terminal state or is unmounted.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Mount starts verification. It returns immediately; a second call is
// ignored. A missing token is reported through the clock, never from
// within Mount itself.
func (p *Poller) Mount(ctx context.Context, token string) {
	p.mu.Lock()
	if p.mounted || p.unmounted {
		p.mu.Unlock()
		return
	}
	p.mounted = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	if token == "" {
		p.clock.AfterFunc(0, func() {
			p.settle(State{Status: StatusError, Error: MsgTokenMissing})
		})
		return
	}

	go p.verify(ctx, token)
}

func (p *Poller) verify(ctx context.Context, token string) {
	u, err := p.verifier.VerifyEmail(ctx, token)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		msg := MsgUnexpected
		if apiErr, ok := authclient.AsAPIError(err); ok {
			msg = apiErr.Message
			if msg == "" {
				msg = MsgFailed
			}
		} else {
			p.logger.Error("email verification error", "error", err.Error())
		}
		p.settle(State{Status: StatusError, Error: msg})
		return
	}

	if !p.settle(State{Status: StatusSuccess, User: u}) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unmounted {
		return
	}
	p.timer = p.clock.AfterFunc(RedirectDelay, p.redirect)
}

// redirect runs on the clock. The Navigator must not call back into the
// poller.
func (p *Poller) redirect() {
	p.navMu.Lock()
	defer p.navMu.Unlock()

	p.mu.Lock()
	unmounted := p.unmounted
	p.mu.Unlock()
	if unmounted {
		return
	}
	p.nav.Navigate(p.DashboardURL())
}

// settle moves to a terminal state unless the poller was unmounted.
func (p *Poller) settle(s State) bool {
	p.mu.Lock()
	if p.unmounted || p.state.Status != StatusLoading {
		p.mu.Unlock()
		return false
	}
	p.state = s
	p.mu.Unlock()

	p.doneOnce.Do(func() { close(p.done) })
	return true
}

// Unmount cancels the in-flight call and the pending redirect. A redirect
// already navigating finishes before Unmount returns.
func (p *Poller) Unmount() {
	p.navMu.Lock()
	defer p.navMu.Unlock()

	p.mu.Lock()
	p.unmounted = true
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.doneOnce.Do(func() { close(p.done) })
}
