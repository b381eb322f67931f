package schema

import (
	"sort"
	"strings"
)

// KeySet is an unordered set of fixed-arity string tuples (key columns,
// foreign key triples, index/column pairs).
type KeySet struct {
	items map[string][]string
}

const tupleSep = "\x00"

// NewKeySet builds a set from the given tuples.
func NewKeySet(tuples ...[]string) KeySet {
	ks := KeySet{items: make(map[string][]string)}
	for _, t := range tuples {
		ks.Add(t...)
	}
	return ks
}

// Add inserts a tuple. Duplicates are ignored.
func (ks *KeySet) Add(values ...string) {
	if ks.items == nil {
		ks.items = make(map[string][]string)
	}
	key := strings.Join(values, tupleSep)
	if _, ok := ks.items[key]; ok {
		return
	}
	cp := make([]string, len(values))
	copy(cp, values)
	ks.items[key] = cp
}

// Len returns the number of tuples.
func (ks KeySet) Len() int {
	return len(ks.items)
}

// Equal reports set equality, independent of insertion order.
func (ks KeySet) Equal(other KeySet) bool {
	if len(ks.items) != len(other.items) {
		return false
	}
	for k := range ks.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the tuples in lexicographic order.
func (ks KeySet) Sorted() [][]string {
	keys := make([]string, 0, len(ks.items))
	for k := range ks.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, ks.items[k])
	}
	return out
}

// String renders the sorted set as a literal list. Single-value tuples render as
// bare strings: ['Code', 'Id']. Wider tuples render parenthesized:
// [('CustomerId', 'Customer', 'Id')].
func (ks KeySet) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, t := range ks.Sorted() {
		if i > 0 {
			b.WriteString(", ")
		}
		if len(t) == 1 {
			b.WriteString(quote(t[0]))
			continue
		}
		b.WriteByte('(')
		for j, v := range t {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quote(v))
		}
		b.WriteByte(')')
	}
	b.WriteByte(']')
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
