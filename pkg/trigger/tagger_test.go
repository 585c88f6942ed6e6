package trigger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var testTables = Tables{
	Electron: {
		{Name: "hltSingleEle22WPLooseGsfTrackIsoFilter", Slot: 0},
		{Name: "hltEle25WP60SC4HcalIsoFilter", Slot: 2},
	},
	Photon: photonTable,
}

func newTestTagger(t *testing.T, fullFormat bool) *Tagger {
	t.Helper()
	tg, err := NewTagger(NewRegistry(), testTables, Options{
		Tolerances: generous,
		FullFormat: fullFormat,
	})
	require.NoError(t, err)
	return tg
}

func summaryEvent(filters ...FilterKeys) *fakeEvent {
	return &fakeEvent{summary: &Summary{
		Objects: []Kinematics{
			{Pt: 100, Eta: 1.0, Phi: 0.5},
			{Pt: 35, Eta: -0.7, Phi: -1.5},
		},
		Filters: filters,
	}}
}

func TestTagger_MatchPerSpecies(t *testing.T) {
	tg := newTestTagger(t, true)
	require.NoError(t, tg.InitTriggerFilters(summaryEvent(
		FilterKeys{Label: "hltEle25WP60SC4HcalIsoFilter", Keys: []int{0}},
		FilterKeys{Label: "hltEG36HEFilter", Keys: []int{1}},
	)))
	require.True(t, tg.Populated())

	require.Equal(t, int32(1<<2), tg.MatchElectronTriggerFilters(100, 1.0, 0.5))
	require.Equal(t, int32(0), tg.MatchPhotonTriggerFilters(100, 1.0, 0.5))
	require.Equal(t, int32(0), tg.MatchMuonTriggerFilters(100, 1.0, 0.5))

	require.Equal(t, int32(1<<2), tg.MatchPhotonTriggerFilters(35, -0.7, -1.5))
	require.Equal(t, int32(0), tg.MatchElectronTriggerFilters(35, -0.7, -1.5))
}

func TestTagger_ResetBetweenEvents(t *testing.T) {
	tg := newTestTagger(t, true)
	require.NoError(t, tg.InitTriggerFilters(summaryEvent(
		FilterKeys{Label: "hltSingleEle22WPLooseGsfTrackIsoFilter", Keys: []int{0, 1}},
		FilterKeys{Label: "hltEG22HEFilter", Keys: []int{0}},
	)))
	require.Equal(t, 2, tg.Cache().Len(Electron))
	require.Equal(t, 1, tg.Cache().Len(Photon))

	require.NoError(t, tg.InitTriggerFilters(summaryEvent(
		FilterKeys{Label: "hltEG22HEFilter", Keys: []int{1}},
	)))
	require.Empty(t, tg.Cache().Objects(Electron, 0))
	require.Equal(t, []Kinematics{{Pt: 35, Eta: -0.7, Phi: -1.5}}, tg.Cache().Objects(Photon, 0))
	require.Equal(t, int32(0), tg.MatchElectronTriggerFilters(100, 1.0, 0.5))
}

func TestTagger_UnregisteredSlotsAreCleared(t *testing.T) {
	tg := newTestTagger(t, true)
	tg.Cache().Add(Muon, 17, Kinematics{Pt: 50, Eta: 0, Phi: 0})

	require.NoError(t, tg.InitTriggerFilters(summaryEvent()))
	require.Empty(t, tg.Cache().Objects(Muon, 17))
}

func TestTagger_FailedEventLeavesEmptyCache(t *testing.T) {
	tg := newTestTagger(t, true)
	require.NoError(t, tg.InitTriggerFilters(summaryEvent(
		FilterKeys{Label: "hltEG22HEFilter", Keys: []int{0}},
	)))

	bad := summaryEvent(
		FilterKeys{Label: "hltEG22HEFilter", Keys: []int{0}},
		FilterKeys{Label: "hltEG30HEFilter", Keys: []int{9}},
	)
	require.ErrorIs(t, tg.InitTriggerFilters(bad), ErrMalformedData)
	require.False(t, tg.Populated())
	require.Equal(t, 0, tg.Cache().Len(Photon))
	require.Equal(t, int32(0), tg.MatchPhotonTriggerFilters(100, 1.0, 0.5))

	require.ErrorIs(t, tg.InitTriggerFilters(&fakeEvent{}), ErrMissingDataSource)
	require.False(t, tg.Populated())
}

func TestTagger_MatchBeforeInit(t *testing.T) {
	tg := newTestTagger(t, true)
	require.False(t, tg.Populated())
	require.Equal(t, Bits(0), tg.Match(Electron, 100, 1.0, 0.5))
}

func TestTagger_ReducedFormat(t *testing.T) {
	tg := newTestTagger(t, false)
	ev := &fakeEvent{
		names: fakeNames{"HLT_Photon250_NoHE_v1"},
		objects: []StandaloneObject{
			&fakeObject{
				k:      Kinematics{Pt: 260, Eta: 0.3, Phi: -0.3},
				paths:  []int{0},
				labels: []string{"hltEG250erEtFilter"},
			},
		},
	}
	require.NoError(t, tg.InitTriggerFilters(ev))
	require.Equal(t, int32(1<<9), tg.MatchPhotonTriggerFilters(255, 0.32, -0.28))
}

func TestTagger_HighestSlotIsNegative(t *testing.T) {
	tg, err := NewTagger(NewRegistry(), Tables{
		Muon: {{Name: "hltL3fL1sMu22L3Filtered24", Slot: 31}},
	}, Options{Tolerances: generous, FullFormat: true})
	require.NoError(t, err)

	require.NoError(t, tg.InitTriggerFilters(&fakeEvent{summary: &Summary{
		Objects: []Kinematics{{Pt: 25, Eta: 0, Phi: 0}},
		Filters: []FilterKeys{{Label: "hltL3fL1sMu22L3Filtered24", Keys: []int{0}}},
	}}))
	got := tg.MatchMuonTriggerFilters(25, 0, 0)
	require.Equal(t, int32(-1<<31), got)
	require.True(t, Bits(uint32(got)).Has(31))
}

func TestNewTagger_RejectsOverflow(t *testing.T) {
	_, err := NewTagger(NewRegistry(), Tables{
		Photon: {{Name: "hltEG1000Filter", Slot: 40}},
	}, Options{Tolerances: generous})
	require.ErrorIs(t, err, ErrSlotOverflow)
}

func TestTagger_SharedRegistryConcurrentEvents(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			tg, err := NewTagger(reg, testTables, Options{Tolerances: generous, FullFormat: true})
			if err != nil {
				t.Error(err)
				return
			}
			pt := float64(20 + w)
			for i := 0; i < 50; i++ {
				ev := &fakeEvent{summary: &Summary{
					Objects: []Kinematics{{Pt: pt, Eta: 0, Phi: 0}},
					Filters: []FilterKeys{{Label: "hltEG22HEFilter", Keys: []int{0}}},
				}}
				if err := tg.InitTriggerFilters(ev); err != nil {
					t.Error(err)
					return
				}
				if tg.Cache().Len(Photon) != 1 {
					t.Errorf("worker %d saw %d photon objects", w, tg.Cache().Len(Photon))
					return
				}
				if got := tg.MatchPhotonTriggerFilters(pt, 0, 0); got != 1 {
					t.Errorf("worker %d got bits %d", w, got)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
