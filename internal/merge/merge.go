// Package merge folds the anonymous cart and wishlist of a session into an
// account when the visitor authenticates.
package merge

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/session"
)

type Merger struct {
	Sessions session.Store
	Accounts cart.AccountStore
	Events   events.Publisher
	Metrics  *metrics.Metrics
	// Tracer defaults to the global provider.
	Tracer trace.Tracer
}

// Result reports what a merge moved.
type Result struct {
	CartLines       int
	WishlistEntries int
}

// Merge moves the anonymous state of sid into accountID. Cart quantities
// are summed and wishlists unioned. Failures are logged and swallowed; the
// returned Result counts only what was written.
func (m *Merger) Merge(ctx context.Context, sid string, accountID uuid.UUID) Result {
	var res Result
	if sid == "" || accountID == uuid.Nil {
		return res
	}

	tracer := m.Tracer
	if tracer == nil {
		tracer = otel.Tracer("storefront/merge")
	}
	ctx, span := tracer.Start(ctx, "session.merge")
	defer span.End()

	l := logging.FromContext(ctx).With("component", "merge", "account_id", accountID.String())

	failed := false
	var err error
	res.CartLines, err = m.mergeCart(ctx, sid, accountID)
	if err != nil {
		failed = true
		l.Error("merge_cart_error", "error", err)
		span.RecordError(err)
		m.count("cart_error")
	}

	res.WishlistEntries, err = m.mergeWishlist(ctx, sid, accountID)
	if err != nil {
		failed = true
		l.Error("merge_wishlist_error", "error", err)
		span.RecordError(err)
		m.count("wishlist_error")
	}

	span.SetAttributes(
		attribute.Int("merge.cart_lines", res.CartLines),
		attribute.Int("merge.wishlist_entries", res.WishlistEntries),
	)
	if failed {
		span.SetStatus(codes.Error, "merge incomplete")
	}
	if res.CartLines == 0 && res.WishlistEntries == 0 {
		if !failed {
			m.count("empty")
		}
		return res
	}

	m.count("ok")
	if m.Metrics != nil {
		m.Metrics.MergedLines.Add(float64(res.CartLines + res.WishlistEntries))
	}
	if !failed {
		span.SetStatus(codes.Ok, "")
	}
	l.Info("session_merged", "cart_lines", res.CartLines, "wishlist_entries", res.WishlistEntries)

	if m.Events != nil {
		ev := events.New("cart.merged", map[string]any{
			"accountId":       accountID.String(),
			"cartLines":       res.CartLines,
			"wishlistEntries": res.WishlistEntries,
		})
		if err := m.Events.Publish(ctx, events.TopicCart, accountID.String(), ev); err != nil {
			l.Warn("publish_merge_event_error", "error", err)
		}
	}
	return res
}

func (m *Merger) count(outcome string) {
	if m.Metrics != nil {
		m.Metrics.MergeTotal.WithLabelValues(outcome).Inc()
	}
}

// SumLines adds each incoming quantity onto the matching line of current,
// appending lines for new products. Quantities are not capped.
func SumLines(current, incoming []domain.CartLine) []domain.CartLine {
	out := slices.Clone(current)
	index := make(map[string]int, len(out))
	for i, l := range out {
		index[l.ProductID] = i
	}
	for _, l := range incoming {
		q := domain.ClampQuantity(l.Quantity)
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += q
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, domain.CartLine{ProductID: l.ProductID, Quantity: q})
	}
	return out
}

// UnionIDs appends ids from incoming that current lacks.
func UnionIDs(current, incoming []string) []string {
	out := slices.Clone(current)
	for _, id := range incoming {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (m *Merger) mergeCart(ctx context.Context, sid string, accountID uuid.UUID) (int, error) {
	taken, err := m.Sessions.TakeCart(ctx, sid)
	if err != nil {
		return 0, err
	}
	if len(taken) == 0 {
		return 0, nil
	}

	_, err = m.Accounts.ModifyCart(ctx, accountID, func(cur []domain.CartLine) ([]domain.CartLine, error) {
		return SumLines(cur, taken), nil
	})
	if err != nil {
		m.restoreCart(ctx, sid, taken)
		return 0, err
	}
	return len(taken), nil
}

func (m *Merger) mergeWishlist(ctx context.Context, sid string, accountID uuid.UUID) (int, error) {
	taken, err := m.Sessions.TakeWishlist(ctx, sid)
	if err != nil {
		return 0, err
	}
	if len(taken) == 0 {
		return 0, nil
	}

	_, err = m.Accounts.ModifyWishlist(ctx, accountID, func(cur []string) ([]string, error) {
		return UnionIDs(cur, taken), nil
	})
	if err != nil {
		m.restoreWishlist(ctx, sid, taken)
		return 0, err
	}
	return len(taken), nil
}

// restoreCart puts taken lines back so a failed merge does not lose them.
func (m *Merger) restoreCart(ctx context.Context, sid string, lines []domain.CartLine) {
	for _, l := range lines {
		if err := m.Sessions.AddToCart(ctx, sid, l.ProductID, l.Quantity); err != nil {
			logging.FromContext(ctx).Error("merge_restore_cart_error", "error", err)
			return
		}
	}
}

func (m *Merger) restoreWishlist(ctx context.Context, sid string, ids []string) {
	for _, id := range ids {
		if err := m.Sessions.AddToWishlist(ctx, sid, id); err != nil {
			logging.FromContext(ctx).Error("merge_restore_wishlist_error", "error", err)
			return
		}
	}
}
