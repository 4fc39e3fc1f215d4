package progress

import (
	"sync"

	"github.com/megacloud/megacloud-cli/internal/events"
)

// Follower renders the transfer progress events published on a bus,
// one Reporter per task.
type Follower struct {
	bus      *events.EventBus
	ch       <-chan events.Event
	newBar   func() Reporter
	bars     map[string]Reporter
	done     chan struct{}
	stopOnce sync.Once
}

// Follow subscribes to transfer events on bus and draws them with
// reporters from newBar until Stop.
func Follow(bus *events.EventBus, newBar func() Reporter) *Follower {
	f := &Follower{
		bus:    bus,
		ch:     bus.SubscribeAll(),
		newBar: newBar,
		bars:   make(map[string]Reporter),
		done:   make(chan struct{}),
	}
	go f.loop()
	return f
}

func (f *Follower) loop() {
	defer close(f.done)
	for ev := range f.ch {
		switch e := ev.(type) {
		case *events.TransferProgressEvent:
			bar, ok := f.bars[e.TaskID]
			if !ok {
				if e.Percent >= 100 {
					continue
				}
				bar = f.newBar()
				bar.Start(100, e.Kind+" "+e.Name)
				f.bars[e.TaskID] = bar
			}
			bar.Update(int64(e.Percent))
			if e.Percent >= 100 {
				bar.Finish()
				delete(f.bars, e.TaskID)
			}
		case *events.TransferStateEvent:
			if e.NewState != "failed" {
				continue
			}
			if bar, ok := f.bars[e.TaskID]; ok {
				bar.Error(nil)
				delete(f.bars, e.TaskID)
			}
		}
	}
}

// Stop unsubscribes and waits for the render loop to drain.
func (f *Follower) Stop() {
	f.stopOnce.Do(func() {
		f.bus.UnsubscribeAll(f.ch)
		<-f.done
	})
}
