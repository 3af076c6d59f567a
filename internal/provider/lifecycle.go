package provider

import (
	"context"

	"github.com/roach88/syncstore/internal/store"
)

// listener adapts the caller's lifecycle hooks into a store listener.
func (p *Provider) listener() store.Listener {
	return store.Listener{
		OnBegin:     p.hooks.OnBegin,
		OnPreCommit: p.hooks.OnPreCommit,
		OnRollback:  p.hooks.OnRollback,
	}
}

// runInTransaction wraps body in one store transaction.
//
// On success the transaction is marked successful and End commits.
// On any failure or panic from body the transaction is not marked,
// so End rolls back the open segment. Cleanup is unconditional and
// ordered: privilege restore, then transaction end, then the
// post-transaction notification. A panic re-raises after cleanup.
func (p *Provider) runInTransaction(ctx context.Context, tc *txContext, body func(ctx context.Context) error) (err error) {
	if beginErr := p.engine.Begin(ctx, p.listener()); beginErr != nil {
		return beginErr
	}
	restore := p.identity.Elevate()

	defer func() {
		restore()
		if endErr := p.engine.End(); endErr != nil && err == nil {
			err = endErr
		}
		p.notifyEnd(tc)
	}()

	if err = body(ctx); err != nil {
		return err
	}
	p.engine.MarkSuccessful()
	return nil
}

// notifyEnd fires the change notification if anything in the
// transaction reported a change. Consuming the dirty flag guarantees
// at most one notification per top-level transaction. The propagate
// decision reads the origin captured when the transaction started:
// mutations that came from a sync agent are not echoed back outward.
func (p *Provider) notifyEnd(tc *txContext) {
	if !tc.consumeDirty() {
		return
	}
	propagate := !tc.syncOrigin()
	p.logger.Debug("change notification", "propagate_remote", propagate)
	p.notifier.Notify(propagate)
}
