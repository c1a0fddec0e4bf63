package flow

import (
	"context"
	"sync"

	"github.com/redmonkez12/go-saas-starter/internal/logging"
)

// SignOutButton signs out and returns to the home page. Failures are
// logged only and keep the user where they are.
type SignOutButton struct {
	api    API
	nav    Navigator
	locale string
	logger *logging.Logger

	mu      sync.Mutex
	loading bool
}

func NewSignOutButton(api API, nav Navigator, locale string, logger *logging.Logger) *SignOutButton {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SignOutButton{api: api, nav: nav, locale: locale, logger: logger}
}

func (b *SignOutButton) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *SignOutButton) SignOut(ctx context.Context) {
	b.mu.Lock()
	if b.loading {
		b.mu.Unlock()
		return
	}
	b.loading = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.loading = false
		b.mu.Unlock()
	}()

	if err := b.api.SignOut(ctx); err != nil {
		b.logger.Error("sign out error", "error", err.Error())
		return
	}
	b.nav.Navigate(localized(b.locale, "/"))
}
