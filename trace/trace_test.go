package trace

import (
	"runtime"
	"sync"
	"testing"
)

func TestRecorderDrainOrder(t *testing.T) {
	var r Recorder
	for i := 0; i < 5; i++ {
		r.Scheduled(uint64(i), i-1, i)
	}

	got := r.Drain(nil)
	if len(got) != 5 {
		t.Fatalf("Drain() len = %d, want 5", len(got))
	}
	for i, ev := range got {
		want := Event{Tick: uint64(i), From: int32(i - 1), To: int32(i)}
		if ev != want {
			t.Fatalf("Drain()[%d] = %+v, want %+v", i, ev, want)
		}
	}
	if _, ok := r.TryNext(); ok {
		t.Fatalf("TryNext() ok = true after Drain, want false")
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	var r Recorder
	for i := 0; i < recorderSlots+3; i++ {
		r.Scheduled(uint64(i), 0, 1)
	}

	if r.Dropped() != 3 {
		t.Fatalf("Dropped() = %d, want 3", r.Dropped())
	}
	got := r.Drain(nil)
	if len(got) != recorderSlots {
		t.Fatalf("Drain() len = %d, want %d", len(got), recorderSlots)
	}
	if last := got[len(got)-1].Tick; last != recorderSlots-1 {
		t.Fatalf("last Tick = %d, want %d", last, recorderSlots-1)
	}
}

func TestRecorderConcurrentDrain(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(2)
	defer runtime.GOMAXPROCS(oldProcs)

	const total = 50_000
	var r Recorder
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			r.Scheduled(uint64(i), 0, 1)
			if i%64 == 0 {
				runtime.Gosched()
			}
		}
	}()

	var got []Event
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		got = r.Drain(got)
	}
	got = r.Drain(got)

	if uint64(len(got))+r.Dropped() != total {
		t.Fatalf("received %d + dropped %d, want %d", len(got), r.Dropped(), total)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Tick <= got[i-1].Tick {
			t.Fatalf("event %d tick %d after %d, want increasing", i, got[i].Tick, got[i-1].Tick)
		}
	}
}
