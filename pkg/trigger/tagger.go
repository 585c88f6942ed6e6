package trigger

// Tables holds the configured filter table of each species.
type Tables map[Species]FilterTable

// Options configure a Tagger.
type Options struct {
	Tolerances Tolerances
	// FullFormat selects the full-format trigger summary instead of
	// reduced-format standalone objects.
	FullFormat bool
}

// Tagger is the per-event entry point used by candidate-processing code:
// InitTriggerFilters once per event, then any number of Match calls.
//
// A Tagger owns its cache and must not be shared between goroutines. Taggers
// may share a Registry.
type Tagger struct {
	registry *Registry
	tables   Tables
	cache    *Cache
	opts     Options
	filled   bool
}

// NewTagger builds every species table of tables into reg, so that slot
// configuration errors surface before the first event.
func NewTagger(reg *Registry, tables Tables, opts Options) (*Tagger, error) {
	t := &Tagger{
		registry: reg,
		tables:   tables,
		cache:    NewCache(),
		opts:     opts,
	}
	if err := t.ensureRegistry(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tagger) ensureRegistry() error {
	for _, s := range AllSpecies {
		if err := t.registry.EnsureInitialized(s, t.tables[s]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tagger) Registry() *Registry { return t.registry }

func (t *Tagger) Cache() *Cache { return t.cache }

// InitTriggerFilters replaces the cached trigger objects with those of ev.
// On error the cache is left empty, so no candidate of the failed event can
// match.
func (t *Tagger) InitTriggerFilters(ev Event) error {
	t.cache.Reset()
	t.filled = false

	if err := t.ensureRegistry(); err != nil {
		return err
	}
	if err := Fill(t.cache, t.registry, ev, t.opts.FullFormat); err != nil {
		t.cache.Reset()
		return err
	}
	t.filled = true
	return nil
}

// Populated reports whether the current event's trigger objects are loaded.
func (t *Tagger) Populated() bool { return t.filled }

// Match returns the filter bits of a candidate of the given species. It
// returns 0 before the first successful InitTriggerFilters.
func (t *Tagger) Match(s Species, pt, eta, phi float64) Bits {
	if !t.filled {
		return 0
	}
	return t.cache.Match(s, t.opts.Tolerances, pt, eta, phi)
}

func (t *Tagger) MatchElectronTriggerFilters(pt, eta, phi float64) int32 {
	return int32(t.Match(Electron, pt, eta, phi))
}

func (t *Tagger) MatchPhotonTriggerFilters(pt, eta, phi float64) int32 {
	return int32(t.Match(Photon, pt, eta, phi))
}

func (t *Tagger) MatchMuonTriggerFilters(pt, eta, phi float64) int32 {
	return int32(t.Match(Muon, pt, eta, phi))
}
