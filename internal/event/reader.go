package event

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"trgmatch/pkg/trigger"
)

func (r *Record) TriggerSummary() (*trigger.Summary, error) {
	if r.Summary == nil {
		return nil, fmt.Errorf("%w: event %d:%d:%d has no triggerSummary", trigger.ErrMissingDataSource, r.Run, r.Lumi, r.Event)
	}
	return r.Summary, nil
}

func (r *Record) StandaloneObjects() ([]trigger.StandaloneObject, error) {
	if r.Objects == nil {
		return nil, fmt.Errorf("%w: event %d:%d:%d has no triggerObjects", trigger.ErrMissingDataSource, r.Run, r.Lumi, r.Event)
	}
	out := make([]trigger.StandaloneObject, 0, len(r.Objects))
	for i, o := range r.Objects {
		if o == nil {
			return nil, fmt.Errorf("%w: trigger object %d is null", trigger.ErrMalformedData, i)
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *Record) TriggerNames() (trigger.Names, error) {
	if r.TriggerPaths == nil {
		return nil, fmt.Errorf("%w: event %d:%d:%d has no triggerNames", trigger.ErrMissingDataSource, r.Run, r.Lumi, r.Event)
	}
	return r.TriggerPaths, nil
}

// Candidates returns the reconstructed candidates of a species.
func (r *Record) Candidates(s trigger.Species) []trigger.Kinematics {
	switch s {
	case trigger.Electron:
		return r.Electrons
	case trigger.Photon:
		return r.Photons
	case trigger.Muon:
		return r.Muons
	}
	return nil
}

// Reader decodes a stream of JSON-lines event records.
type Reader struct {
	dec  *json.Decoder
	read int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(bufio.NewReader(r))}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decoding event record %d: %w", r.read+1, err)
	}
	r.read++
	return &rec, nil
}

// Count is the number of records decoded so far.
func (r *Reader) Count() int { return r.read }
