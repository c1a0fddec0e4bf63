package email

import (
	"context"
	"sync"
)

// LazySender builds its transport on the first Send. Construction errors
// are sticky and returned by every Send.
type LazySender struct {
	factory func() (Sender, error)

	once   sync.Once
	sender Sender
	err    error
}

func NewLazySender(factory func() (Sender, error)) *LazySender {
	return &LazySender{factory: factory}
}

func (l *LazySender) Send(ctx context.Context, msg Message) error {
	l.once.Do(func() {
		l.sender, l.err = l.factory()
	})
	if l.err != nil {
		return l.err
	}
	return l.sender.Send(ctx, msg)
}
