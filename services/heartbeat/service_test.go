package heartbeat

import (
	"context"
	"testing"
	"time"

	"bmp384-go/bus"
)

func nextBeat(t *testing.T, sub *bus.Subscription) Beat {
	t.Helper()
	select {
	case m := <-sub.Channel():
		b, ok := m.Payload.(Beat)
		if !ok {
			t.Fatalf("payload %T", m.Payload)
		}
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no beat")
	}
	return Beat{}
}

func TestBeatsCountUp(t *testing.T) {
	b := bus.NewBus(4)
	mon := b.NewConnection("mon")
	sub := mon.Subscribe(TopicBeat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &Service{Interval: 5 * time.Millisecond}
	if err := s.Start(ctx, b.NewConnection("hb")); err != nil {
		t.Fatal(err)
	}
	first := nextBeat(t, sub)
	second := nextBeat(t, sub)
	if second.Seq <= first.Seq {
		t.Fatalf("seq %d then %d", first.Seq, second.Seq)
	}
}

func TestIntervalConfig(t *testing.T) {
	b := bus.NewBus(4)
	mon := b.NewConnection("mon")
	sub := mon.Subscribe(TopicBeat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &Service{Interval: time.Hour}
	done := make(chan struct{})
	go func() {
		s.Run(ctx, b.NewConnection("hb"))
		close(done)
	}()

	// Retry until the service has subscribed to its config topic.
	deadline := time.After(2 * time.Second)
	for {
		mon.Publish(mon.NewMessage(TopicConfig, map[string]any{"interval": 0.005}, false))
		select {
		case m := <-sub.Channel():
			if _, ok := m.Payload.(Beat); !ok {
				t.Fatalf("payload %T", m.Payload)
			}
			cancel()
			<-done
			if s.Interval != 5*time.Millisecond {
				t.Fatalf("interval %v", s.Interval)
			}
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("interval not applied")
		}
	}
}
