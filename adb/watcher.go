package adb

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	goadb "github.com/zach-klippenstein/goadb"
)

// DeviceEvent reports a device changing connection state.
type DeviceEvent struct {
	Serial    string
	OldState  string
	NewState  string
	Timestamp time.Time
}

// Online reports whether the device is now usable.
func (e DeviceEvent) Online() bool {
	return e.NewState == goadb.StateOnline.String()
}

// Watcher follows hot-plug events from the local adb server.
type Watcher struct {
	adb *goadb.Adb
	log zerolog.Logger
}

// NewWatcher connects to the adb server, starting it with adbPath if needed.
func NewWatcher(adbPath string, log zerolog.Logger) (*Watcher, error) {
	client, err := goadb.NewWithConfig(goadb.ServerConfig{PathToAdb: adbPath})
	if err != nil {
		return nil, err
	}
	return &Watcher{
		adb: client,
		log: log.With().Str("component", "watcher").Logger(),
	}, nil
}

// Watch streams state changes until ctx is done or the server connection
// fails. The returned channel is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context) <-chan DeviceEvent {
	dw := w.adb.NewDeviceWatcher()
	out := make(chan DeviceEvent)

	go func() {
		defer close(out)
		defer dw.Shutdown()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-dw.C():
				if !ok {
					if err := dw.Err(); err != nil {
						w.log.Warn().Err(err).Msg("device watcher stopped")
					}
					return
				}
				e := DeviceEvent{
					Serial:    ev.Serial,
					OldState:  ev.OldState.String(),
					NewState:  ev.NewState.String(),
					Timestamp: time.Now(),
				}
				w.log.Debug().Str("serial", e.Serial).Str("from", e.OldState).Str("to", e.NewState).
					Msg("device state changed")
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
