package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trgmatch/internal/config"
	"trgmatch/pkg/trigger"
)

var (
	filtersSpecies string
	filtersPrefix  string
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Print the filter-to-bit assignment in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tables, err := config.LoadFilterTables(cfg.Filters)
		if err != nil {
			return err
		}
		reg := trigger.NewRegistry()
		for _, s := range trigger.AllSpecies {
			if err := reg.EnsureInitialized(s, tables[s]); err != nil {
				return err
			}
		}

		species := trigger.AllSpecies[:]
		if filtersSpecies != "" {
			s, err := trigger.ParseSpecies(filtersSpecies)
			if err != nil {
				return err
			}
			species = []trigger.Species{s}
		}
		return writeFilters(cmd.OutOrStdout(), reg, species, filtersPrefix)
	},
}

func init() {
	filtersCmd.Flags().StringVar(&filtersSpecies, "species", "", "only list one species (electron, photon, muon)")
	filtersCmd.Flags().StringVar(&filtersPrefix, "prefix", "", "only list filters whose label starts with prefix")
}

type filterBit struct {
	Bit  int    `yaml:"bit"`
	Mask string `yaml:"mask"`
	Name string `yaml:"name"`
}

func writeFilters(w io.Writer, reg *trigger.Registry, species []trigger.Species, prefix string) error {
	doc := make(map[string][]filterBit, len(species))
	for _, s := range species {
		entries := reg.FiltersWithPrefix(s, prefix)
		bits := make([]filterBit, 0, len(entries))
		for _, e := range entries {
			bits = append(bits, filterBit{
				Bit:  e.Slot,
				Mask: fmt.Sprintf("0x%08x", uint32(1)<<uint(e.Slot)),
				Name: e.Name,
			})
		}
		doc[s.String()] = bits
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding filters: %w", err)
	}
	return enc.Close()
}
