package provider

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
	"github.com/roach88/syncstore/internal/store"
)

// DefaultYieldDelay is the sleep applied after a contended yield inside
// a batch, giving the blocked writer time to finish before the batch
// reclaims the lock.
const DefaultYieldDelay = 4000 * time.Millisecond

// Engine is the transaction surface the provider drives. Implemented
// by *store.Store in production and by fakes in tests.
type Engine interface {
	// Begin opens a transaction and registers lifecycle callbacks.
	Begin(ctx context.Context, listener store.Listener) error

	// MarkSuccessful arms End to commit instead of rolling back.
	MarkSuccessful()

	// End closes the transaction: commit if marked successful,
	// rollback otherwise. A no-op when no transaction is open.
	End() error

	// YieldIfContended briefly commits and reopens the transaction if
	// another writer is waiting. Reports whether a yield happened.
	YieldIfContended(ctx context.Context, delay time.Duration) (bool, error)
}

// MutationHandler supplies the concrete mutation logic. The handler
// runs inside the open transaction; it must not manage transactions
// itself. syncOrigin carries the calling operation's own declared
// origin (not the transaction's captured one).
type MutationHandler interface {
	ApplyInsert(ctx context.Context, target resource.URI, values resource.Values, syncOrigin bool) (uri resource.URI, changed bool, err error)
	ApplyUpdate(ctx context.Context, target resource.URI, values resource.Values, pred selection.Predicate, syncOrigin bool) (count int64, changed bool, err error)
	ApplyDelete(ctx context.Context, target resource.URI, pred selection.Predicate, syncOrigin bool) (count int64, changed bool, err error)
}

// Notifier receives the at-most-once change notification for a
// top-level transaction. propagateRemote is false when the mutation
// originated from a synchronization agent.
type Notifier interface {
	Notify(propagateRemote bool)
}

// NotifyFunc adapts a function to the Notifier interface.
type NotifyFunc func(propagateRemote bool)

// Notify implements Notifier.
func (f NotifyFunc) Notify(propagateRemote bool) { f(propagateRemote) }

// Identity elevates execution privilege around a mutation body.
// Elevate returns the restore function; restore runs on every exit
// path, including panics.
type Identity interface {
	Elevate() (restore func())
}

// nopIdentity is the default Identity: no privilege model in play.
type nopIdentity struct{}

func (nopIdentity) Elevate() func() { return func() {} }

// Hooks are caller-overridable transaction lifecycle callbacks. All
// are optional. OnBegin fires on every transaction begin, including
// the reopen after a yield.
type Hooks struct {
	OnBegin     func()
	OnPreCommit func()
	OnRollback  func()
}

// Provider coordinates mutations against a single-writer store.
//
// Thread-safety: a Provider may be shared by concurrent callers; each
// call owns its transaction context exclusively. The reentrancy marker
// travels on the context.Context, never in shared state, so concurrent
// callers cannot observe each other's batch state or dirty flag.
type Provider struct {
	engine     Engine
	handler    MutationHandler
	notifier   Notifier
	identity   Identity
	hooks      Hooks
	logger     *slog.Logger
	yieldDelay time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithNotifier sets the change notification sink. Default: none.
func WithNotifier(n Notifier) Option {
	return func(p *Provider) { p.notifier = n }
}

// WithIdentity sets the privilege elevation scope. Default: no-op.
func WithIdentity(id Identity) Option {
	return func(p *Provider) { p.identity = id }
}

// WithHooks sets the transaction lifecycle hooks. Default: none.
func WithHooks(h Hooks) Option {
	return func(p *Provider) { p.hooks = h }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithYieldDelay overrides the post-yield sleep for batches.
// Tests use 0 to keep contention handoffs fast.
func WithYieldDelay(d time.Duration) Option {
	return func(p *Provider) { p.yieldDelay = d }
}

// New creates a Provider over the given engine and mutation handler.
func New(engine Engine, handler MutationHandler, opts ...Option) *Provider {
	p := &Provider{
		engine:     engine,
		handler:    handler,
		notifier:   NotifyFunc(func(bool) {}),
		identity:   nopIdentity{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		yieldDelay: DefaultYieldDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
