package trigger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/armon/go-radix"
	"github.com/bits-and-blooms/bloom/v3"
)

// Registry maps filter labels to slot indices, one table per species.
//
// Each species table is built once, by the first EnsureInitialized call for
// that species, and is immutable afterwards. Lookups are safe for concurrent
// use by any number of goroutines.
//
// By convention only the last filter of an HLT path is registered, so objects
// that passed intermediate filters of a cascading path are not tracked.
type Registry struct {
	tables [numSpecies]speciesTable
}

type speciesTable struct {
	once  sync.Once
	ready atomic.Bool
	err   error

	tree  *radix.Tree
	bf    *bloom.BloomFilter
	names [MaxFilters]string
}

func NewRegistry() *Registry {
	return &Registry{}
}

// EnsureInitialized builds the species table from table on the first call.
// Later calls keep the first mapping and return the first call's error.
func (r *Registry) EnsureInitialized(s Species, table FilterTable) error {
	if !s.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownSpecies, s)
	}
	t := &r.tables[s]
	t.once.Do(func() {
		t.err = t.build(table)
		if t.err != nil {
			t.err = fmt.Errorf("%s filters: %w", s, t.err)
			return
		}
		t.ready.Store(true)
	})
	return t.err
}

func (t *speciesTable) build(table FilterTable) error {
	tree := radix.New()
	bf := bloom.NewWithEstimates(uint(len(table))*4+1, 1e-4)
	var names [MaxFilters]string

	for _, e := range table {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return fmt.Errorf("empty filter name for slot %d", e.Slot)
		}
		if e.Slot < 0 || e.Slot >= MaxFilters {
			return fmt.Errorf("%w: %s -> %d (max %d)", ErrSlotOverflow, name, e.Slot, MaxFilters-1)
		}
		if names[e.Slot] != "" {
			return fmt.Errorf("%w: %d (%s, %s)", ErrDuplicateSlot, e.Slot, names[e.Slot], name)
		}
		if _, dup := tree.Get(name); dup {
			return fmt.Errorf("filter %s listed twice", name)
		}
		tree.Insert(name, e.Slot)
		bf.AddString(name)
		names[e.Slot] = name
	}

	t.tree = tree
	t.bf = bf
	t.names = names
	return nil
}

func (r *Registry) table(s Species) *speciesTable {
	if !s.valid() {
		return nil
	}
	t := &r.tables[s]
	if !t.ready.Load() {
		return nil
	}
	return t
}

// Initialized reports whether the species table has been built successfully.
func (r *Registry) Initialized(s Species) bool {
	return r.table(s) != nil
}

// Lookup returns the slot of a filter label. Unknown labels and
// uninitialized species report ok=false.
func (r *Registry) Lookup(s Species, label string) (slot int, ok bool) {
	t := r.table(s)
	if t == nil {
		return 0, false
	}
	// Most labels in an event are not of interest.
	if !t.bf.TestString(label) {
		return 0, false
	}
	v, ok := t.tree.Get(label)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// Name returns the label registered for slot, or "" if the slot is free.
func (r *Registry) Name(s Species, slot int) string {
	t := r.table(s)
	if t == nil || slot < 0 || slot >= MaxFilters {
		return ""
	}
	return t.names[slot]
}

// Filters returns the registered filters of a species ordered by slot.
func (r *Registry) Filters(s Species) FilterTable {
	t := r.table(s)
	if t == nil {
		return nil
	}
	var out FilterTable
	for slot, name := range t.names {
		if name != "" {
			out = append(out, FilterEntry{Name: name, Slot: slot})
		}
	}
	return out
}

// FiltersWithPrefix returns the registered filters whose label starts with prefix.
func (r *Registry) FiltersWithPrefix(s Species, prefix string) FilterTable {
	t := r.table(s)
	if t == nil {
		return nil
	}
	var out FilterTable
	t.tree.WalkPrefix(prefix, func(name string, v interface{}) bool {
		out = append(out, FilterEntry{Name: name, Slot: v.(int)})
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Describe lists the labels whose bits are set in b.
func (r *Registry) Describe(s Species, b Bits) []string {
	var out []string
	for slot := 0; slot < MaxFilters; slot++ {
		if !b.Has(slot) {
			continue
		}
		if name := r.Name(s, slot); name != "" {
			out = append(out, name)
		} else {
			out = append(out, fmt.Sprintf("slot%d", slot))
		}
	}
	return out
}
