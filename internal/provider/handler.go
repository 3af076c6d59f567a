package provider

import (
	"context"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
	"github.com/roach88/syncstore/internal/store"
)

// StoreHandler applies mutations directly to a store. It is the
// default handler for a provider whose engine is the same *store.Store:
// the provider manages the transaction, the handler runs statements
// inside it.
type StoreHandler struct {
	Store *store.Store
}

var _ MutationHandler = (*StoreHandler)(nil)

// ApplyInsert writes one row and returns its row URI. An insert
// always changes state when it succeeds.
func (h *StoreHandler) ApplyInsert(ctx context.Context, target resource.URI, values resource.Values, syncOrigin bool) (resource.URI, bool, error) {
	id, err := h.Store.Insert(ctx, target.Table(), values)
	if err != nil {
		return "", false, err
	}
	return resource.JoinRow(target.Table(), id), true, nil
}

// ApplyUpdate modifies matching rows and reports whether anything
// actually changed.
func (h *StoreHandler) ApplyUpdate(ctx context.Context, target resource.URI, values resource.Values, pred selection.Predicate, syncOrigin bool) (int64, bool, error) {
	count, err := h.Store.Update(ctx, target.Table(), values, pred)
	if err != nil {
		return 0, false, err
	}
	return count, count > 0, nil
}

// ApplyDelete removes matching rows and reports whether anything
// actually changed.
func (h *StoreHandler) ApplyDelete(ctx context.Context, target resource.URI, pred selection.Predicate, syncOrigin bool) (int64, bool, error) {
	count, err := h.Store.Delete(ctx, target.Table(), pred)
	if err != nil {
		return 0, false, err
	}
	return count, count > 0, nil
}
