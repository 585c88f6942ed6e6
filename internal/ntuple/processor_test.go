package ntuple

import (
	"bytes"
	"context"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"trgmatch/internal/config"
	"trgmatch/internal/event"
	"trgmatch/internal/metrics"
	"trgmatch/pkg/trigger"
)

const miniAODEvents = `{"run":1,"lumi":1,"event":10,"triggerObjects":[{"pt":100,"eta":1.0,"phi":0.5,"pathIndices":[0],"filterLabels":["hltEG90HEFilter","hltEG75HEFilter"]},{"pt":23,"eta":-0.2,"phi":2.0,"pathIndices":[1],"filterLabels":["hltSingleEle22WPLooseGsfTrackIsoFilter"]}],"triggerNames":["HLT_Photon90_v1","HLT_Ele22_eta2p1_WPLoose_Gsf_v1"],"photons":[{"pt":98,"eta":1.02,"phi":0.49},{"pt":300,"eta":0,"phi":0}],"electrons":[{"pt":24,"eta":-0.2,"phi":2.05}]}
{"run":1,"lumi":1,"event":11,"triggerObjects":[],"triggerNames":[],"photons":[{"pt":98,"eta":1.02,"phi":0.49}]}
`

func newProcessor(t *testing.T, buf *bytes.Buffer, format string, full, skip bool) *Processor {
	t.Helper()
	opts := config.Defaults().TaggerOptions()
	opts.FullFormat = full
	tg, err := trigger.NewTagger(trigger.NewRegistry(), config.DefaultFilterTables(), opts)
	require.NoError(t, err)
	return NewProcessor(tg, buf, format, skip, true)
}

func decodeOutputs(t *testing.T, buf *bytes.Buffer) []Output {
	t.Helper()
	var outs []Output
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var o Output
		require.NoError(t, json.Unmarshal([]byte(line), &o))
		outs = append(outs, o)
	}
	return outs
}

func TestProcessor_ReducedFormat(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(t, &buf, "test-mini", false, false)

	okBefore := testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("test-mini", metrics.StatusOK))
	st, err := p.Run(context.Background(), event.NewReader(strings.NewReader(miniAODEvents)))
	require.NoError(t, err)
	require.Equal(t, Stats{Events: 2}, st)
	require.Equal(t, okBefore+2, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("test-mini", metrics.StatusOK)))

	outs := decodeOutputs(t, &buf)
	require.Len(t, outs, 2)

	// hltEG75HEFilter is photon slot 4, hltEG90HEFilter slot 5.
	require.Equal(t, []int32{1<<4 | 1<<5, 0}, outs[0].PhoFiredTrgs)
	require.Equal(t, []int32{1 << 0}, outs[0].EleFiredTrgs)
	require.Equal(t, []int32{}, outs[0].MuFiredTrgs)

	// Nothing carries over from the previous event.
	require.Equal(t, uint64(11), outs[1].Event)
	require.Equal(t, []int32{0}, outs[1].PhoFiredTrgs)
}

func TestProcessor_FullFormat(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(t, &buf, "test-aod", true, false)

	input := `{"run":2,"lumi":5,"event":1,"triggerSummary":{"objects":[{"pt":180,"eta":0.1,"phi":-1.0}],"filters":[{"label":"hltEG175HEFilter","keys":[0]},{"label":"hltEG165HE10Filter","keys":[0]}]},"photons":[{"pt":175,"eta":0.12,"phi":-1.01}]}`
	st, err := p.Run(context.Background(), event.NewReader(strings.NewReader(input)))
	require.NoError(t, err)
	require.Equal(t, 1, st.Events)

	outs := decodeOutputs(t, &buf)
	require.Len(t, outs, 1)
	require.Equal(t, []int32{1<<7 | 1<<8}, outs[0].PhoFiredTrgs)
}

func TestProcessor_MissingDataAborts(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(t, &buf, "test-abort", true, false)

	failedBefore := testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("test-abort", metrics.StatusFailed))
	st, err := p.Run(context.Background(), event.NewReader(strings.NewReader(miniAODEvents)))
	require.ErrorIs(t, err, trigger.ErrMissingDataSource)
	require.Contains(t, err.Error(), "event 1:1:10")
	require.Equal(t, 0, st.Events)
	require.Empty(t, buf.String())
	require.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("test-abort", metrics.StatusFailed)))
}

func TestProcessor_SkipBadEvents(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(t, &buf, "test-skip", false, true)

	input := `{"event":1,"triggerNames":["HLT_A"],"photons":[{"pt":10,"eta":0,"phi":0}]}
{"event":2,"triggerObjects":[{"pt":100,"eta":1.0,"phi":0.5,"pathIndices":[0],"filterLabels":["hltEG22HEFilter"]}],"triggerNames":["HLT_Photon22_v1"],"photons":[{"pt":100,"eta":1.0,"phi":0.5}]}
`
	st, err := p.Run(context.Background(), event.NewReader(strings.NewReader(input)))
	require.NoError(t, err)
	require.Equal(t, Stats{Events: 1, Skipped: 1}, st)

	outs := decodeOutputs(t, &buf)
	require.Len(t, outs, 1)
	require.Equal(t, uint64(2), outs[0].Event)
	require.Equal(t, []int32{1}, outs[0].PhoFiredTrgs)
}

func TestProcessor_DecodeError(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(t, &buf, "test-decode", false, true)

	_, err := p.Run(context.Background(), event.NewReader(strings.NewReader("{not json}\n")))
	require.Error(t, err)
}

func TestProcessor_Cancelled(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(t, &buf, "test-cancel", false, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, event.NewReader(strings.NewReader(miniAODEvents)))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, buf.String())
}
