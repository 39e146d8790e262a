package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adbdeck/models"
	"adbdeck/parser"
)

func TestJobUsesSelectedDevice(t *testing.T) {
	f := newFakeExec()
	f.outputs["adb devices"] = devicesOut
	d := testDispatcher(f)
	battery, _ := d.client.BatteryCmd("R9TR90HQ6GL")
	f.outputs[battery.String()] = "  AC powered: false\n  level: 42\n"

	m := startManager(t, f)
	hub := &recordingHub{}
	m.SetBroadcaster(hub)
	if _, err := m.ScanDevices(context.Background()); err != nil {
		t.Fatal(err)
	}
	history := NewHistoryStore(testDB(t))
	jobs := NewJobs(d, m, history, parser.English, zerolog.Nop())

	res, err := jobs.Run(context.Background(), ActionBattery, "", models.ActionParams{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DeviceID != "R9TR90HQ6GL" || res.Error != "" {
		t.Fatalf("result = %+v", res)
	}
	if res.Parsed != "Battery level: 42%\nCharging: no" {
		t.Errorf("parsed = %q", res.Parsed)
	}
	if last := m.Snapshot().LastResult; last == nil || last.JobID != res.JobID {
		t.Errorf("last result = %+v", last)
	}
	if got := hub.types(); len(got) != 2 || got[1] != "job_result" {
		t.Errorf("broadcasts = %v", got)
	}

	recs, err := history.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != res.JobID || recs[0].Kind != models.KindInfo || recs[0].Message != "Battery Info" {
		t.Errorf("history = %+v", recs)
	}
}

func TestJobPreconditionFailsSynchronously(t *testing.T) {
	d := testDispatcher(newFakeExec())
	history := NewHistoryStore(testDB(t))
	jobs := NewJobs(d, nil, history, parser.English, zerolog.Nop())

	if _, _, err := jobs.Submit(context.Background(), ActionBattery, "", models.ActionParams{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("err = %v, want ErrNoDevice", err)
	}
	if _, _, err := jobs.Submit(context.Background(), 999, "", models.ActionParams{}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
	jobs.Wait()
	if recs, _ := history.Recent(context.Background(), 0); len(recs) != 0 {
		t.Errorf("history = %+v", recs)
	}
}

func TestJobPanicBecomesError(t *testing.T) {
	d := testDispatcher(newFakeExec())
	d.handlers[ActionHome] = func(context.Context, string, models.ActionParams) (*models.Envelope, error) {
		panic("boom")
	}
	history := NewHistoryStore(testDB(t))
	jobs := NewJobs(d, nil, history, parser.English, zerolog.Nop())

	res, err := jobs.Run(context.Background(), ActionHome, dev, models.ActionParams{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(res.Error, "boom") || res.Envelope != nil {
		t.Errorf("result = %+v", res)
	}
	recs, _ := history.Recent(context.Background(), 1)
	if len(recs) != 1 || !strings.Contains(recs[0].Error, "boom") {
		t.Errorf("history = %+v", recs)
	}
}

func TestJobOutlivesCallerContext(t *testing.T) {
	f := newFakeExec()
	d := testDispatcher(f)
	release := make(chan struct{})
	d.handlers[ActionHome] = func(context.Context, string, models.ActionParams) (*models.Envelope, error) {
		<-release
		return models.Status("Home pressed"), nil
	}
	jobs := NewJobs(d, nil, nil, parser.English, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	_, done, err := jobs.Submit(ctx, ActionHome, dev, models.ActionParams{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	close(release)

	select {
	case res := <-done:
		if res.Envelope == nil || res.Envelope.Message != "Home pressed" {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
	if _, ok := <-done; ok {
		t.Error("result channel not closed")
	}
}

func TestCompositeJobIgnoresDevice(t *testing.T) {
	f := newFakeExec()
	f.outputs["adb devices"] = devicesOut
	jobs := NewJobs(testDispatcher(f), nil, nil, parser.English, zerolog.Nop())

	res, err := jobs.Run(context.Background(), ActionSleepAll, "whatever", models.ActionParams{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DeviceID != "" || res.Envelope == nil {
		t.Errorf("result = %+v", res)
	}
}
