package trigger

import (
	"errors"
	"fmt"
)

// FilterKeys lists the trigger objects that passed one filter, as keys into
// the summary's global object collection.
type FilterKeys struct {
	Label string `json:"label"`
	Keys  []int  `json:"keys"`
}

// Summary is the full-format trigger record of an event: one global object
// collection plus the key list of every filter that fired.
type Summary struct {
	Objects []Kinematics `json:"objects"`
	Filters []FilterKeys `json:"filters"`
}

// Names is the trigger-name table of an event, derived from its trigger results.
type Names interface {
	Size() int
	TriggerName(i int) string
}

// StandaloneObject is a reduced-format trigger object carrying its own
// kinematics. FilterLabels is only valid after UnpackPathNames.
type StandaloneObject interface {
	Kinematics() Kinematics
	UnpackPathNames(names Names) error
	FilterLabels() []string
}

// Event is the trigger view of one event provided by the host framework.
// Accessors return an error wrapping ErrMissingDataSource when the
// collection is absent.
type Event interface {
	// TriggerSummary serves the full-format path.
	TriggerSummary() (*Summary, error)
	// StandaloneObjects and TriggerNames serve the reduced-format path.
	StandaloneObjects() ([]StandaloneObject, error)
	TriggerNames() (Names, error)
}

// Fill classifies the event's trigger objects through the registry and
// appends them to the cache. The cache must have been Reset for the event.
func Fill(c *Cache, r *Registry, ev Event, fullFormat bool) error {
	if fullFormat {
		return fillSummary(c, r, ev)
	}
	return fillStandalone(c, r, ev)
}

func missing(what string, err error) error {
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrMissingDataSource, what)
	case errors.Is(err, ErrMissingDataSource):
		return fmt.Errorf("%s: %w", what, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrMissingDataSource, what, err)
	}
}

func fillSummary(c *Cache, r *Registry, ev Event) error {
	summary, err := ev.TriggerSummary()
	if err != nil || summary == nil {
		return missing("trigger summary", err)
	}

	for _, f := range summary.Filters {
		for _, s := range AllSpecies {
			slot, ok := r.Lookup(s, f.Label)
			if !ok {
				continue
			}
			for _, key := range f.Keys {
				if key < 0 || key >= len(summary.Objects) {
					return fmt.Errorf("%w: filter %s key %d outside %d trigger objects",
						ErrMalformedData, f.Label, key, len(summary.Objects))
				}
				c.Add(s, slot, summary.Objects[key])
			}
		}
	}
	return nil
}

func fillStandalone(c *Cache, r *Registry, ev Event) error {
	objects, err := ev.StandaloneObjects()
	if err != nil {
		return missing("trigger objects", err)
	}
	names, err := ev.TriggerNames()
	if err != nil || names == nil {
		return missing("trigger results", err)
	}

	for i, obj := range objects {
		if err := obj.UnpackPathNames(names); err != nil {
			return fmt.Errorf("%w: trigger object %d: %v", ErrMalformedData, i, err)
		}
		k := obj.Kinematics()
		for _, label := range obj.FilterLabels() {
			for _, s := range AllSpecies {
				if slot, ok := r.Lookup(s, label); ok {
					c.Add(s, slot, k)
				}
			}
		}
	}
	return nil
}
