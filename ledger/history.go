package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/flowtrader/market"
)

// History is the bounded outcome history read by the correlation gate.
// Symbols are pooled by correlation group; each group has its own lock so
// closes in one group never block gate reads in another.
type History struct {
	k       int
	groupOf map[string]string
	members map[string][]string

	mu     sync.RWMutex // guards groups
	groups map[string]*groupHistory
}

type groupHistory struct {
	mu       sync.RWMutex
	bySymbol map[string][]market.Outcome
}

// NewHistory keeps the last k outcomes per symbol. groups maps a group name
// to its symbols; a symbol may belong to one group only. Symbols in no
// group are pooled with themselves.
func NewHistory(k int, groups map[string][]string) (*History, error) {
	if k <= 0 {
		return nil, fmt.Errorf("history: k must be positive, got %d", k)
	}
	h := &History{
		k:       k,
		groupOf: make(map[string]string),
		members: make(map[string][]string),
		groups:  make(map[string]*groupHistory),
	}
	for name, syms := range groups {
		for _, s := range syms {
			if other, ok := h.groupOf[s]; ok {
				return nil, fmt.Errorf("history: symbol %s is in groups %s and %s", s, other, name)
			}
			h.groupOf[s] = name
		}
		h.members[name] = append([]string(nil), syms...)
	}
	return h, nil
}

// Group returns the group key of symbol.
func (h *History) Group(symbol string) string {
	if g, ok := h.groupOf[symbol]; ok {
		return g
	}
	return "symbol:" + symbol
}

// Members returns the symbols pooled with symbol, itself included.
func (h *History) Members(symbol string) []string {
	if g, ok := h.groupOf[symbol]; ok {
		return append([]string(nil), h.members[g]...)
	}
	return []string{symbol}
}

// lookup finds the group of symbol without creating it, so reads of
// unknown symbols leave the map alone.
func (h *History) lookup(symbol string) (*groupHistory, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.groups[h.Group(symbol)]
	return g, ok
}

// group finds or creates the group of symbol. Only writers call it.
func (h *History) group(symbol string) *groupHistory {
	key := h.Group(symbol)
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[key]
	if !ok {
		g = &groupHistory{bySymbol: make(map[string][]market.Outcome)}
		h.groups[key] = g
	}
	return g
}

// Append records an outcome, evicting the oldest beyond k.
func (h *History) Append(o market.Outcome) {
	g := h.group(o.Symbol)
	g.mu.Lock()
	defer g.mu.Unlock()

	list := append(g.bySymbol[o.Symbol], o)
	if len(list) > h.k {
		list = append([]market.Outcome(nil), list[len(list)-h.k:]...)
	}
	g.bySymbol[o.Symbol] = list
}

// RecentOutcomes returns the pooled history of symbol's group: at most k
// (and never more than the bound) per member, oldest first.
func (h *History) RecentOutcomes(symbol string, k int) []market.Outcome {
	if k <= 0 || k > h.k {
		k = h.k
	}
	g, ok := h.lookup(symbol)
	if !ok {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []market.Outcome
	for _, s := range h.Members(symbol) {
		list := g.bySymbol[s]
		if len(list) > k {
			list = list[len(list)-k:]
		}
		out = append(out, list...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClosedAt.Before(out[j].ClosedAt) })
	return out
}

// Len is the number of outcomes stored for symbol alone.
func (h *History) Len(symbol string) int {
	g, ok := h.lookup(symbol)
	if !ok {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.bySymbol[symbol])
}
