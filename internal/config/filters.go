package config

import (
	"fmt"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"

	"trgmatch/pkg/trigger"
)

const (
	FilterTableAPIVersion = "trgmatch/v1"
	FilterTableKind       = "TriggerFilterTable"
)

// FilterTable is the on-disk description of the filters of interest.
type FilterTable struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec FilterTableSpec `json:"spec"`
}

type FilterTableSpec struct {
	Electron []FilterSpec `json:"electron,omitempty"`
	Photon   []FilterSpec `json:"photon,omitempty"`
	Muon     []FilterSpec `json:"muon,omitempty"`
}

type FilterSpec struct {
	Name string `json:"name"`
	Slot int    `json:"slot"`
}

func toTable(specs []FilterSpec) trigger.FilterTable {
	out := make(trigger.FilterTable, 0, len(specs))
	for _, s := range specs {
		out = append(out, trigger.FilterEntry{Name: s.Name, Slot: s.Slot})
	}
	return out
}

// Tables converts the document into per-species registry tables.
func (ft *FilterTable) Tables() trigger.Tables {
	return trigger.Tables{
		trigger.Electron: toTable(ft.Spec.Electron),
		trigger.Photon:   toTable(ft.Spec.Photon),
		trigger.Muon:     toTable(ft.Spec.Muon),
	}
}

// ValidateTables builds every species table into a scratch registry.
func ValidateTables(tables trigger.Tables) error {
	r := trigger.NewRegistry()
	for _, s := range trigger.AllSpecies {
		if err := r.EnsureInitialized(s, tables[s]); err != nil {
			return err
		}
	}
	return nil
}

// LoadFilterTables reads a FilterTable document (YAML or JSON) from path.
// An empty path selects DefaultFilterTables.
func LoadFilterTables(path string) (trigger.Tables, error) {
	if path == "" {
		return DefaultFilterTables(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening filter table: %w", err)
	}
	defer f.Close()

	var doc FilterTable
	if err := utilyaml.NewYAMLOrJSONDecoder(f, 4096).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding filter table %s: %w", path, err)
	}
	if doc.Kind != FilterTableKind {
		return nil, fmt.Errorf("filter table %s: kind %q, want %q", path, doc.Kind, FilterTableKind)
	}
	if doc.APIVersion != "" && doc.APIVersion != FilterTableAPIVersion {
		return nil, fmt.Errorf("filter table %s: unsupported apiVersion %q", path, doc.APIVersion)
	}

	tables := doc.Tables()
	if err := ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("filter table %s: %w", path, err)
	}
	return tables, nil
}

// DefaultFilterTables is the built-in filter set. The electron entries are
// placeholders and no muon filters are defined; production runs supply their
// own table.
func DefaultFilterTables() trigger.Tables {
	return trigger.Tables{
		trigger.Electron: {
			{Name: "hltSingleEle22WPLooseGsfTrackIsoFilter", Slot: 0},
			{Name: "hltL1sL1SingleEG20ORL1SingleEG15", Slot: 1},
			{Name: "hltEle25WP60SC4HcalIsoFilter", Slot: 2},
		},
		trigger.Photon: {
			{Name: "hltEG22HEFilter", Slot: 0},
			{Name: "hltEG30HEFilter", Slot: 1},
			{Name: "hltEG36HEFilter", Slot: 2},
			{Name: "hltEG50HEFilter", Slot: 3},
			{Name: "hltEG75HEFilter", Slot: 4},
			{Name: "hltEG90HEFilter", Slot: 5},
			{Name: "hltEG120HEFilter", Slot: 6},
			{Name: "hltEG165HE10Filter", Slot: 7},
			{Name: "hltEG175HEFilter", Slot: 8},
			{Name: "hltEG250erEtFilter", Slot: 9},
			{Name: "hltEG300erEtFilter", Slot: 10},
			{Name: "hltEG500HEFilter", Slot: 11},
			{Name: "hltEG600HEFilter", Slot: 12},
		},
		trigger.Muon: {},
	}
}
