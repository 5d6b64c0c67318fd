package irrecoverable

import (
	"context"
	"runtime"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Signaler forwards the first irrecoverable error of a component to its
// supervisor. Later errors are dropped: the supervisor shuts the component
// down after the first one.
type Signaler struct {
	errors chan<- error
	thrown *atomic.Bool
}

// NewSignaler returns a signaler writing to errors, which must be able to
// buffer one error.
func NewSignaler(errors chan<- error) *Signaler {
	return &Signaler{errors: errors, thrown: atomic.NewBool(false)}
}

// Throw reports err and terminates the calling goroutine.
func (s *Signaler) Throw(err error) {
	if s.thrown.CompareAndSwap(false, true) {
		s.errors <- err
	}
	runtime.Goexit()
}

// SignalerContext is a context.Context that also carries the signaler of the
// component running under it.
type SignalerContext interface {
	context.Context
	Throw(err error)
	sealed()
}

type signalerCtx struct {
	context.Context
	signaler *Signaler
}

func (sc signalerCtx) sealed() {}

func (sc signalerCtx) Throw(err error) {
	sc.signaler.Throw(err)
}

// WithSignaler attaches the signaler to ctx.
func WithSignaler(ctx context.Context, sig *Signaler) SignalerContext {
	return signalerCtx{ctx, sig}
}

// Throw reports err through ctx if it is a SignalerContext and exits the
// process otherwise.
func Throw(ctx context.Context, err error) {
	if sc, ok := ctx.(SignalerContext); ok {
		sc.Throw(err)
	}
	log.Fatal().Err(err).Msg("irrecoverable error outside of a signaler context")
}
