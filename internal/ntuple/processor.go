package ntuple

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"trgmatch/internal/event"
	"trgmatch/internal/metrics"
	"trgmatch/pkg/trigger"
)

// Output is the trigger-matching branch set written for one event.
type Output struct {
	Run          uint32  `json:"run"`
	Lumi         uint32  `json:"lumi"`
	Event        uint64  `json:"event"`
	EleFiredTrgs []int32 `json:"eleFiredTrgs"`
	PhoFiredTrgs []int32 `json:"phoFiredTrgs"`
	MuFiredTrgs  []int32 `json:"muFiredTrgs"`
}

type Stats struct {
	Events  int
	Skipped int
}

// Processor runs the trigger tagger over a stream of events and writes one
// Output line per event.
type Processor struct {
	Tagger        *trigger.Tagger
	Format        string
	SkipBadEvents bool
	Verbose       bool

	enc *json.Encoder
}

func NewProcessor(tagger *trigger.Tagger, w io.Writer, format string, skipBadEvents, verbose bool) *Processor {
	return &Processor{
		Tagger:        tagger,
		Format:        format,
		SkipBadEvents: skipBadEvents,
		Verbose:       verbose,
		enc:           json.NewEncoder(w),
	}
}

// HandleEvent loads the event's trigger objects and matches every candidate.
func (p *Processor) HandleEvent(rec *event.Record) (Output, error) {
	start := time.Now()
	err := p.Tagger.InitTriggerFilters(rec)
	metrics.FillDuration.WithLabelValues(p.Format).Observe(time.Since(start).Seconds())
	if err != nil {
		return Output{}, err
	}

	cache := p.Tagger.Cache()
	for _, s := range trigger.AllSpecies {
		metrics.TriggerObjectsTotal.WithLabelValues(s.String()).Add(float64(cache.Len(s)))
	}

	out := Output{
		Run:          rec.Run,
		Lumi:         rec.Lumi,
		Event:        rec.Event,
		EleFiredTrgs: p.matchAll(rec, trigger.Electron),
		PhoFiredTrgs: p.matchAll(rec, trigger.Photon),
		MuFiredTrgs:  p.matchAll(rec, trigger.Muon),
	}
	return out, nil
}

func (p *Processor) matchAll(rec *event.Record, s trigger.Species) []int32 {
	cands := rec.Candidates(s)
	out := make([]int32, 0, len(cands))
	for i, c := range cands {
		bits := p.Tagger.Match(s, c.Pt, c.Eta, c.Phi)
		out = append(out, int32(bits))

		metrics.CandidatesTotal.WithLabelValues(s.String(), strconv.FormatBool(bits != 0)).Inc()
		if p.Verbose && bits != 0 {
			log.Debug().
				Uint64("event", rec.Event).
				Str("species", s.String()).
				Int("candidate", i).
				Strs("filters", p.Tagger.Registry().Describe(s, bits)).
				Msg("candidate matched trigger filters")
		}
	}
	return out
}

func errorType(err error) string {
	switch {
	case errors.Is(err, trigger.ErrMissingDataSource):
		return metrics.ErrorTypeMissingData
	case errors.Is(err, trigger.ErrMalformedData):
		return metrics.ErrorTypeMalformedData
	default:
		return metrics.ErrorTypeOther
	}
}

// Run processes records until the reader is exhausted or ctx is cancelled.
// An event whose trigger data cannot be loaded aborts the run unless
// SkipBadEvents is set.
func (p *Processor) Run(ctx context.Context, r *event.Reader) (Stats, error) {
	var st Stats
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeDecode).Inc()
			return st, err
		}

		out, err := p.HandleEvent(rec)
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues(errorType(err)).Inc()
			if p.SkipBadEvents {
				metrics.EventsTotal.WithLabelValues(p.Format, metrics.StatusSkipped).Inc()
				log.Warn().Err(err).Msgf("Skipping event %d:%d:%d", rec.Run, rec.Lumi, rec.Event)
				st.Skipped++
				continue
			}
			metrics.EventsTotal.WithLabelValues(p.Format, metrics.StatusFailed).Inc()
			return st, fmt.Errorf("event %d:%d:%d: %w", rec.Run, rec.Lumi, rec.Event, err)
		}

		if err := p.enc.Encode(out); err != nil {
			metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeOutput).Inc()
			return st, fmt.Errorf("writing event %d: %w", rec.Event, err)
		}
		metrics.EventsTotal.WithLabelValues(p.Format, metrics.StatusOK).Inc()
		st.Events++
	}
}
