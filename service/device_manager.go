package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/models"
	"adbdeck/registry"
)

// ErrStopped is returned by state updates once the owner loop has exited.
var ErrStopped = errors.New("device manager stopped")

// Broadcaster pushes frames to every connected websocket client. It must
// not block.
type Broadcaster interface {
	BroadcastToAll(msg models.WSMessage)
}

// AppState is the shared application state: the known devices, the one
// the operator selected and the outcome of the latest job.
type AppState struct {
	Selected   string            `json:"selected"`
	Devices    []models.Device   `json:"devices"`
	ScannedAt  int64             `json:"scanned_at"`
	LastResult *models.JobResult `json:"last_result,omitempty"`
}

func (s AppState) clone() AppState {
	s.Devices = append([]models.Device(nil), s.Devices...)
	return s
}

func (s AppState) has(id string) bool {
	for _, d := range s.Devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

type update struct {
	apply func(*AppState) error
	done  chan error
}

// DeviceManager owns AppState. Every mutation runs on the goroutine started
// by Run; readers get copies from Snapshot.
type DeviceManager struct {
	client   *adb.ADBClient
	registry *registry.Registry
	hub      Broadcaster
	updates  chan update
	stopped  chan struct{}
	snap     atomic.Pointer[AppState]
	log      zerolog.Logger
}

func NewDeviceManager(client *adb.ADBClient, reg *registry.Registry, log zerolog.Logger) *DeviceManager {
	m := &DeviceManager{
		client:   client,
		registry: reg,
		updates:  make(chan update),
		stopped:  make(chan struct{}),
		log:      log.With().Str("component", "devices").Logger(),
	}
	m.snap.Store(&AppState{})
	return m
}

// SetBroadcaster attaches the websocket hub. Call before Run.
func (m *DeviceManager) SetBroadcaster(b Broadcaster) {
	m.hub = b
}

// Run applies updates until ctx is done.
func (m *DeviceManager) Run(ctx context.Context) {
	defer close(m.stopped)
	state := m.Snapshot()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-m.updates:
			err := u.apply(&state)
			next := state.clone()
			m.snap.Store(&next)
			u.done <- err
		}
	}
}

// Stopped is closed once Run returns.
func (m *DeviceManager) Stopped() <-chan struct{} { return m.stopped }

func (m *DeviceManager) do(ctx context.Context, fn func(*AppState) error) error {
	u := update{apply: fn, done: make(chan error, 1)}
	select {
	case m.updates <- u:
	case <-m.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-u.done
}

// Snapshot returns a copy of the current state.
func (m *DeviceManager) Snapshot() AppState {
	return m.snap.Load().clone()
}

// Selected returns the currently selected device id, or "".
func (m *DeviceManager) Selected() string {
	return m.snap.Load().Selected
}

// ScanDevices enumerates connected devices, labels them from the registry
// and installs the result. The selection survives when its device is still
// connected; otherwise the first device is selected.
func (m *DeviceManager) ScanDevices(ctx context.Context) ([]models.Device, error) {
	rows := m.client.Devices(ctx)
	devices := make([]models.Device, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, models.Device{
			ID:     row.Serial,
			Label:  m.registry.Label(row.Serial),
			Status: row.State,
		})
	}

	err := m.do(ctx, func(s *AppState) error {
		s.Devices = devices
		s.ScannedAt = time.Now().Unix()
		if !s.has(s.Selected) {
			s.Selected = ""
			if len(devices) > 0 {
				s.Selected = devices[0].ID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().Int("count", len(devices)).Msg("devices scanned")
	m.publish(models.WSMessage{Type: "devices", Payload: devices})
	return devices, nil
}

// SelectDevice makes id the target of device actions. The id must belong to
// a scanned device.
func (m *DeviceManager) SelectDevice(ctx context.Context, id string) error {
	return m.do(ctx, func(s *AppState) error {
		if !s.has(id) {
			return fmt.Errorf("%w: %s is not connected", ErrNoDevice, id)
		}
		s.Selected = id
		return nil
	})
}

// GetDevice returns a scanned device by id.
func (m *DeviceManager) GetDevice(id string) (models.Device, bool) {
	for _, d := range m.snap.Load().Devices {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

// GetAllDevices returns the devices of the last scan.
func (m *DeviceManager) GetAllDevices() []models.Device {
	return m.Snapshot().Devices
}

// RecordResult stores a finished job as the latest result and publishes it.
func (m *DeviceManager) RecordResult(ctx context.Context, res models.JobResult) error {
	err := m.do(ctx, func(s *AppState) error {
		r := res
		s.LastResult = &r
		return nil
	})
	if err != nil {
		return err
	}
	m.publish(models.WSMessage{Type: "job_result", DeviceID: res.DeviceID, Payload: res})
	return nil
}

// PublishLabel forwards one enriched package label.
func (m *DeviceManager) PublishLabel(u models.LabelUpdate) {
	m.publish(models.WSMessage{Type: "package_label", DeviceID: u.DeviceID, Payload: u})
}

func (m *DeviceManager) publish(msg models.WSMessage) {
	if m.hub != nil {
		m.hub.BroadcastToAll(msg)
	}
}

// WatchDevices rescans whenever the adb server reports a state change.
// It returns when events stops.
func (m *DeviceManager) WatchDevices(ctx context.Context, events <-chan adb.DeviceEvent) {
	for ev := range events {
		m.log.Info().Str("serial", ev.Serial).Str("state", ev.NewState).Bool("online", ev.Online()).Msg("device changed")
		if _, err := m.ScanDevices(ctx); err != nil {
			m.log.Warn().Err(err).Msg("rescan failed")
			return
		}
	}
}
