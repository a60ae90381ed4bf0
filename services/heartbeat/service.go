// Package heartbeat publishes a periodic liveness beat so a monitor can tell
// a stalled sensor from a stalled node.
package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bmp384-go/bus"
)

var (
	TopicBeat   = bus.Topic{"heartbeat"}
	TopicConfig = bus.Topic{"config", "heartbeat"}
)

// Beat is the retained payload on TopicBeat.
type Beat struct {
	Seq uint32
	At  time.Time
}

type Service struct {
	// Interval defaults to one second.
	Interval time.Duration
	Log      *zap.SugaredLogger
}

// Run beats until ctx is cancelled. A map payload on TopicConfig with an
// "interval" in seconds changes the period.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	cfgSub := conn.Subscribe(TopicConfig)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			s.Log.Infow("heartbeat stopping", "beats", seq)
			return
		case t := <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(TopicBeat, Beat{Seq: seq, At: t}, true))
		case msg := <-cfgSub.Channel():
			m, ok := msg.Payload.(map[string]any)
			if !ok {
				continue
			}
			iv, ok := m["interval"].(float64)
			if !ok || iv <= 0 {
				s.Log.Warnw("ignoring heartbeat config", "payload", msg.Payload)
				continue
			}
			s.Interval = time.Duration(iv * float64(time.Second))
			tick.Reset(s.Interval)
			s.Log.Infow("heartbeat interval set", "interval", s.Interval)
		}
	}
}

// Start runs the service on its own goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.Run(ctx, conn)
	return nil
}
