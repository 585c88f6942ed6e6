package event

import (
	"fmt"

	"trgmatch/pkg/trigger"
)

// Record is one event as stored in the JSON-lines input.
type Record struct {
	Run   uint32 `json:"run"`
	Lumi  uint32 `json:"lumi"`
	Event uint64 `json:"event"`

	// Full-format trigger data.
	Summary *trigger.Summary `json:"triggerSummary"`

	// Reduced-format trigger data.
	// A nil collection is absent from the event; an empty one is present.
	Objects      []*StandaloneObject `json:"triggerObjects"`
	TriggerPaths NameTable           `json:"triggerNames"`

	Electrons []trigger.Kinematics `json:"electrons,omitempty"`
	Photons   []trigger.Kinematics `json:"photons,omitempty"`
	Muons     []trigger.Kinematics `json:"muons,omitempty"`
}

// NameTable is the trigger-name table derived from an event's trigger results.
type NameTable []string

func (n NameTable) Size() int { return len(n) }

func (n NameTable) TriggerName(i int) string { return n[i] }

// StandaloneObject is a reduced-format trigger object. Its path names are
// stored as indices into the event's NameTable and its filter labels become
// visible once UnpackPathNames has checked them against that table.
type StandaloneObject struct {
	Pt          float64  `json:"pt"`
	Eta         float64  `json:"eta"`
	Phi         float64  `json:"phi"`
	PathIndices []int    `json:"pathIndices,omitempty"`
	Labels      []string `json:"filterLabels,omitempty"`

	unpacked bool
}

func (o *StandaloneObject) Kinematics() trigger.Kinematics {
	return trigger.Kinematics{Pt: o.Pt, Eta: o.Eta, Phi: o.Phi}
}

func (o *StandaloneObject) UnpackPathNames(names trigger.Names) error {
	for _, i := range o.PathIndices {
		if i < 0 || i >= names.Size() {
			return fmt.Errorf("path index %d outside trigger-name table of size %d", i, names.Size())
		}
	}
	o.unpacked = true
	return nil
}

func (o *StandaloneObject) FilterLabels() []string {
	if !o.unpacked {
		return nil
	}
	return o.Labels
}
