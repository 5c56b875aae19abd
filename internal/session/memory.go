package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/domain"
)

type memoryEntry struct {
	lines    []domain.CartLine
	wishlist []string
	expires  time.Time
}

// MemoryStore is an in-process Store for single instance deployments and
// tests. Entries expire ttl after their last write.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for sid, e := range s.entries {
				if now.After(e.expires) {
					delete(s.entries, sid)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// live returns the entry for sid or nil. Caller holds mu.
func (s *MemoryStore) live(sid string) *memoryEntry {
	e, ok := s.entries[sid]
	if !ok {
		return nil
	}
	if s.now().After(e.expires) {
		delete(s.entries, sid)
		return nil
	}
	return e
}

// touch returns the entry for sid, creating it, and extends its expiry.
// Caller holds mu.
func (s *MemoryStore) touch(sid string) *memoryEntry {
	e := s.live(sid)
	if e == nil {
		e = &memoryEntry{}
		s.entries[sid] = e
	}
	e.expires = s.now().Add(s.ttl)
	return e
}

func (s *MemoryStore) Cart(_ context.Context, sid string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(sid)
	if e == nil {
		return []domain.CartLine{}, nil
	}
	return slices.Clone(e.lines), nil
}

func (s *MemoryStore) AddToCart(_ context.Context, sid, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.touch(sid)
	qty = domain.ClampQuantity(qty)
	for i := range e.lines {
		if e.lines[i].ProductID == productID {
			e.lines[i].Quantity += qty
			return nil
		}
	}
	e.lines = append(e.lines, domain.CartLine{ProductID: productID, Quantity: qty})
	return nil
}

func (s *MemoryStore) SetCartQuantity(_ context.Context, sid, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.touch(sid)
	qty = domain.ClampQuantity(qty)
	for i := range e.lines {
		if e.lines[i].ProductID == productID {
			e.lines[i].Quantity = qty
			return nil
		}
	}
	e.lines = append(e.lines, domain.CartLine{ProductID: productID, Quantity: qty})
	return nil
}

func (s *MemoryStore) RemoveFromCart(_ context.Context, sid, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(sid); e != nil {
		e.lines = slices.DeleteFunc(e.lines, func(l domain.CartLine) bool { return l.ProductID == productID })
	}
	return nil
}

func (s *MemoryStore) ClearCart(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(sid); e != nil {
		e.lines = nil
	}
	return nil
}

func (s *MemoryStore) TakeCart(_ context.Context, sid string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(sid)
	if e == nil {
		return []domain.CartLine{}, nil
	}
	out := e.lines
	e.lines = nil
	if out == nil {
		out = []domain.CartLine{}
	}
	return out, nil
}

func (s *MemoryStore) Wishlist(_ context.Context, sid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(sid)
	if e == nil {
		return []string{}, nil
	}
	out := slices.Clone(e.wishlist)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *MemoryStore) AddToWishlist(_ context.Context, sid, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.touch(sid)
	if !slices.Contains(e.wishlist, productID) {
		e.wishlist = append(e.wishlist, productID)
	}
	return nil
}

func (s *MemoryStore) RemoveFromWishlist(_ context.Context, sid, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(sid); e != nil {
		e.wishlist = slices.DeleteFunc(e.wishlist, func(id string) bool { return id == productID })
	}
	return nil
}

func (s *MemoryStore) ClearWishlist(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(sid); e != nil {
		e.wishlist = nil
	}
	return nil
}

func (s *MemoryStore) TakeWishlist(_ context.Context, sid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(sid)
	if e == nil || e.wishlist == nil {
		return []string{}, nil
	}
	out := e.wishlist
	e.wishlist = nil
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
