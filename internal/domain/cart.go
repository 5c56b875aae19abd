package domain

import "strings"

// CartLine is one product in a cart. Quantity is at least 1.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ClampQuantity maps any quantity below 1 to 1.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// NormalizeLines drops lines without a product, clamps quantities and
// collapses repeated products into one line. The first occurrence keeps
// its position and the last occurrence sets the quantity.
func NormalizeLines(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		pid := strings.TrimSpace(l.ProductID)
		if pid == "" {
			continue
		}
		q := ClampQuantity(l.Quantity)
		if i, ok := index[pid]; ok {
			out[i].Quantity = q
			continue
		}
		index[pid] = len(out)
		out = append(out, CartLine{ProductID: pid, Quantity: q})
	}
	return out
}

// NormalizeIDs trims, drops empties and removes duplicates keeping the
// first occurrence.
func NormalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
