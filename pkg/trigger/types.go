package trigger

import (
	"errors"
	"fmt"
)

// MaxFilters is the number of filter slots per species, one bit each in a Bits word.
const MaxFilters = 32

type Species uint8

const (
	Electron Species = iota
	Photon
	Muon
)

const numSpecies = 3

// AllSpecies lists the species in slot-table order.
var AllSpecies = [numSpecies]Species{Electron, Photon, Muon}

func (s Species) String() string {
	switch s {
	case Electron:
		return "electron"
	case Photon:
		return "photon"
	case Muon:
		return "muon"
	default:
		return fmt.Sprintf("Species(%d)", uint8(s))
	}
}

func (s Species) valid() bool {
	return s < numSpecies
}

// ParseSpecies is the inverse of Species.String.
func ParseSpecies(name string) (Species, error) {
	for _, s := range AllSpecies {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpecies, name)
}

// Kinematics is the (pt, eta, phi) triple of a trigger object or candidate.
type Kinematics struct {
	Pt  float64 `json:"pt"`
	Eta float64 `json:"eta"`
	Phi float64 `json:"phi"`
}

// Bits holds one match decision per filter slot.
type Bits uint32

func (b Bits) Has(slot int) bool {
	return slot >= 0 && slot < MaxFilters && b&(1<<uint(slot)) != 0
}

// Tolerances are the matching cuts: relative pt difference and angular distance.
type Tolerances struct {
	Pt     float64
	DeltaR float64
}

// FilterEntry assigns a filter label to a slot.
type FilterEntry struct {
	Name string
	Slot int
}

// FilterTable is the configured set of filters of interest for one species.
type FilterTable []FilterEntry

var (
	ErrMissingDataSource = errors.New("trigger data source missing from event")
	ErrMalformedData     = errors.New("malformed trigger data")
	ErrSlotOverflow      = errors.New("filter slot out of range")
	ErrDuplicateSlot     = errors.New("filter slot assigned twice")
	ErrUnknownSpecies    = errors.New("unknown species")
)
