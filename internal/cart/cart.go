// Package cart holds a visitor's selection of artworks between page loads.
//
// A cart is an ordered list of artwork snapshots with unique ids. Every
// mutation is applied by the Store as one atomic read-modify-write, so
// concurrent requests on the same cart never drop each other's changes.
// Persistence problems are logged and never reported to the visitor, and
// unreadable persisted data yields an empty cart.
package cart

import (
	"context"
	"encoding/json"

	"art-store/internal/models"

	"go.uber.org/zap"
)

// Store persists the serialized entries of one cart.
type Store interface {
	// Load returns nil data for a cart that was never saved.
	Load(ctx context.Context, cartID string) ([]byte, error)
	// Update applies mutate to the current data atomically, re-running it if
	// the cart changed underneath. current is nil for a new cart; a nil
	// result leaves the stored data untouched.
	Update(ctx context.Context, cartID string, mutate func(current []byte) ([]byte, error)) error
}

// Cart is the state container for one visitor session. It is a per-request
// view and is not safe for concurrent use.
type Cart struct {
	id      string
	store   Store
	entries []models.CartEntry
	logger  *zap.Logger
}

// Open loads the cart identified by cartID.
func Open(ctx context.Context, store Store, cartID string, logger *zap.Logger) *Cart {
	c := &Cart{
		id:      cartID,
		store:   store,
		entries: []models.CartEntry{},
		logger:  logger,
	}

	data, err := store.Load(ctx, cartID)
	if err != nil {
		logger.Warn("Failed to load cart, starting empty", zap.String("cart_id", cartID), zap.Error(err))
		return c
	}
	c.entries = decodeEntries(data)
	return c
}

// ID returns the cart identifier.
func (c *Cart) ID() string {
	return c.id
}

// Add appends a normalized copy of entry. It returns false, without
// persisting anything, when the entry has no id or is already in the cart.
func (c *Cart) Add(ctx context.Context, entry models.CartEntry) bool {
	entry, ok := normalizeEntry(entry)
	if !ok {
		return false
	}
	return c.update(ctx, func(entries []models.CartEntry) ([]models.CartEntry, bool) {
		if indexOf(entries, entry.ID) >= 0 {
			return entries, false
		}
		return append(entries, entry), true
	})
}

// Remove deletes the entry with the given id. Unknown ids are ignored.
func (c *Cart) Remove(ctx context.Context, id string) {
	c.update(ctx, func(entries []models.CartEntry) ([]models.CartEntry, bool) {
		i := indexOf(entries, id)
		if i < 0 {
			return entries, false
		}
		return append(entries[:i:i], entries[i+1:]...), true
	})
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	c.update(ctx, func(entries []models.CartEntry) ([]models.CartEntry, bool) {
		return []models.CartEntry{}, len(entries) > 0
	})
}

// update runs apply against the stored entries inside Store.Update and
// adopts the result. When the store is unreachable the change is applied to
// the loaded entries only, so the response still reflects it.
func (c *Cart) update(ctx context.Context, apply func([]models.CartEntry) ([]models.CartEntry, bool)) bool {
	var (
		next    []models.CartEntry
		changed bool
		ran     bool
	)
	err := c.store.Update(ctx, c.id, func(current []byte) ([]byte, error) {
		ran = true
		next, changed = apply(decodeEntries(current))
		if !changed {
			return nil, nil
		}
		return json.Marshal(next)
	})
	if err != nil {
		c.logger.Warn("Failed to persist cart", zap.String("cart_id", c.id), zap.Error(err))
		if !ran {
			local := make([]models.CartEntry, len(c.entries))
			copy(local, c.entries)
			next, changed = apply(local)
		}
	}
	c.entries = next
	return changed
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []models.CartEntry {
	out := make([]models.CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// IDs returns the artwork ids in insertion order.
func (c *Cart) IDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.ID
	}
	return ids
}

// Count is the number of distinct artworks.
func (c *Cart) Count() int {
	return len(c.entries)
}

// TotalMinorUnits sums the snapshot prices.
func (c *Cart) TotalMinorUnits() int64 {
	var total int64
	for _, e := range c.entries {
		total += e.PriceMinorUnits
	}
	return total
}

// Currency is the display currency of the total: that of the first entry.
// Mixed-currency carts are not converted.
func (c *Cart) Currency() string {
	if len(c.entries) == 0 {
		return models.DefaultCurrency
	}
	return c.entries[0].CurrencyCode
}

func indexOf(entries []models.CartEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
