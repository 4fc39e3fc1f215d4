package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/models"
)

func sampleView() models.DirectoryView {
	a := models.FileRecord{FileID: "1", DisplayFilename: "a.png", Category: models.CategoryImages, SizeMB: 1}
	b := models.FileRecord{FileID: "2", DisplayFilename: "b.pdf", Category: models.CategoryDocuments, SizeMB: 2}
	return models.NewDirectoryView(
		[]models.FileRecord{a, b},
		map[models.Category][]models.FileRecord{
			models.CategoryImages:    {a},
			models.CategoryDocuments: {b},
		},
	)
}

func TestNewDirectoryState(t *testing.T) {
	s := NewDirectoryState(nil)

	snap := s.Snapshot()
	if snap.Loaded {
		t.Error("new state should not be loaded")
	}
	if len(snap.Visible) != 0 {
		t.Errorf("Visible = %v, want empty", snap.Visible)
	}
	if snap.Filter != models.CategoryAll {
		t.Errorf("Filter = %v, want All", snap.Filter)
	}
}

func TestDirectoryStateSetListing(t *testing.T) {
	bus := events.NewEventBus(10)
	ch := bus.Subscribe(events.EventDirectoryRefreshed)
	s := NewDirectoryState(bus)

	if !s.SetListing(s.Begin(), sampleView(), models.CategoryImages) {
		t.Fatal("SetListing() rejected a live generation")
	}

	snap := s.Snapshot()
	if len(snap.Visible) != 1 || snap.Visible[0].FileID != "1" {
		t.Errorf("Visible = %+v, want only the image", snap.Visible)
	}
	if _, ok := s.FindByID("2"); !ok {
		t.Error("FindByID() should search the whole view, not the filter")
	}

	select {
	case ev := <-ch:
		r := ev.(*events.DirectoryRefreshedEvent)
		if r.Count != 1 || r.Filter != "Images" {
			t.Errorf("event = %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("no refresh event")
	}
}

func TestDirectoryStateDetachDropsStaleWrites(t *testing.T) {
	s := NewDirectoryState(nil)

	gen := s.Begin()
	s.Detach()

	if s.SetListing(gen, sampleView(), models.CategoryAll) {
		t.Error("SetListing() accepted a stale generation")
	}
	if s.SetError(gen, errors.New("late failure")) {
		t.Error("SetError() accepted a stale generation")
	}
	if s.Snapshot().Loaded || s.Error() != nil {
		t.Error("stale write changed the state")
	}

	if !s.SetListing(s.Begin(), sampleView(), models.CategoryAll) {
		t.Error("SetListing() rejected the current generation")
	}
}

func TestDirectoryStateLastWriterWins(t *testing.T) {
	s := NewDirectoryState(nil)

	first := s.Begin()
	second := s.Begin()

	s.SetSearchResults(second, "b", []models.FileRecord{{FileID: "2", DisplayFilename: "b.pdf"}})
	s.SetListing(first, sampleView(), models.CategoryAll)

	snap := s.Snapshot()
	if snap.Query != "" || len(snap.Visible) != 2 {
		t.Errorf("snapshot = %+v, want the later full listing", snap)
	}
}

func TestDirectoryStateErrorKeepsView(t *testing.T) {
	s := NewDirectoryState(nil)
	s.SetListing(s.Begin(), sampleView(), models.CategoryAll)

	failure := errors.New("500")
	s.SetError(s.Begin(), failure)

	if s.Error() != failure {
		t.Errorf("Error() = %v", s.Error())
	}
	if len(s.Snapshot().Visible) != 2 {
		t.Error("failed refresh cleared the previous view")
	}

	s.SetListing(s.Begin(), sampleView(), models.CategoryAll)
	if s.Error() != nil {
		t.Error("successful refresh did not clear the error")
	}
}

func TestStatsState(t *testing.T) {
	s := NewStatsState(nil)
	if _, ok := s.Get(); ok {
		t.Error("new StatsState reports loaded")
	}

	s.Set(models.StatsSnapshot{StorageUsedMB: 5, TotalFiles: 2, TotalCapacityMB: 100})
	got, ok := s.Get()
	if !ok || got.TotalFiles != 2 {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
}

func TestIndicatorBalancedOnEveryPath(t *testing.T) {
	bus := events.NewEventBus(10)
	ch := bus.Subscribe(events.EventLoading)
	ind := NewIndicator(bus)

	end1 := ind.Begin()
	end2 := ind.Begin()
	if ind.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", ind.Depth())
	}

	end1()
	end1()
	if ind.Depth() != 1 {
		t.Errorf("double end changed depth to %d", ind.Depth())
	}
	end2()
	if ind.Active() {
		t.Error("indicator still active after all holds released")
	}

	var transitions []bool
	for len(transitions) < 2 {
		select {
		case ev := <-ch:
			transitions = append(transitions, ev.(*events.LoadingEvent).Active)
		case <-time.After(time.Second):
			t.Fatalf("got %d loading events, want 2", len(transitions))
		}
	}
	if !transitions[0] || transitions[1] {
		t.Errorf("transitions = %v, want [true false]", transitions)
	}
}

func TestIndicatorConcurrent(t *testing.T) {
	ind := NewIndicator(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			end := ind.Begin()
			defer end()
		}()
	}
	wg.Wait()

	if ind.Active() {
		t.Errorf("Depth() = %d after all goroutines finished", ind.Depth())
	}
}
