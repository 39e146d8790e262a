package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"adbdeck/models"
	"adbdeck/parser"
)

// Jobs runs every triggered action on its own goroutine. There is no pool
// and no cancellation: a started job runs until its commands return.
type Jobs struct {
	dispatcher *ActionDispatcher
	devices    *DeviceManager // optional
	history    *HistoryStore  // optional
	locale     parser.Locale
	wg         sync.WaitGroup
	log        zerolog.Logger
}

func NewJobs(d *ActionDispatcher, devices *DeviceManager, history *HistoryStore, locale parser.Locale, log zerolog.Logger) *Jobs {
	return &Jobs{
		dispatcher: d,
		devices:    devices,
		history:    history,
		locale:     locale,
		log:        log.With().Str("component", "jobs").Logger(),
	}
}

// Submit checks the request and starts the job. An empty deviceID targets
// the device selected at submit time. The returned channel yields the
// result once and is then closed.
func (j *Jobs) Submit(ctx context.Context, actionID int, deviceID string, p models.ActionParams) (string, <-chan models.JobResult, error) {
	a, ok := LookupAction(actionID)
	if !ok {
		return "", nil, fmt.Errorf("%w: %d", ErrUnknownAction, actionID)
	}
	if !a.RequiresDevice {
		deviceID = ""
	} else if deviceID == "" && j.devices != nil {
		deviceID = j.devices.Selected()
	}
	if err := j.dispatcher.Check(actionID, deviceID, p); err != nil {
		return "", nil, err
	}

	res := models.JobResult{JobID: uuid.NewString(), ActionID: actionID, DeviceID: deviceID}
	done := make(chan models.JobResult, 1)
	ctx = context.WithoutCancel(ctx)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer close(done)
		started := time.Now()
		out := j.execute(ctx, res, p)
		j.finish(ctx, out, started)
		done <- out
	}()

	j.log.Info().Str("job", res.JobID).Str("action", a.Name).Str("device", deviceID).Msg("job started")
	return res.JobID, done, nil
}

// Run submits a job and waits for its result.
func (j *Jobs) Run(ctx context.Context, actionID int, deviceID string, p models.ActionParams) (models.JobResult, error) {
	_, done, err := j.Submit(ctx, actionID, deviceID, p)
	if err != nil {
		return models.JobResult{}, err
	}
	return <-done, nil
}

// Wait blocks until every submitted job has finished.
func (j *Jobs) Wait() {
	j.wg.Wait()
}

func (j *Jobs) execute(ctx context.Context, res models.JobResult, p models.ActionParams) (out models.JobResult) {
	out = res
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Str("job", res.JobID).Interface("panic", r).Msg("job panicked")
			out.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	env, err := j.dispatcher.Execute(ctx, res.ActionID, res.DeviceID, p)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Envelope = env
	if env.Kind == models.KindInfo {
		out.Parsed = parser.Parse(env.Data, env.Query, j.locale)
	}
	return out
}

func (j *Jobs) finish(ctx context.Context, res models.JobResult, started time.Time) {
	log := j.log.Info()
	if res.Error != "" {
		log = j.log.Warn().Str("error", res.Error)
	}
	log.Str("job", res.JobID).Dur("took", time.Since(started)).Msg("job finished")

	if j.history != nil {
		rec := models.HistoryRecord{
			ID:         res.JobID,
			ActionID:   res.ActionID,
			DeviceID:   res.DeviceID,
			Error:      res.Error,
			StartedAt:  started.Unix(),
			FinishedAt: time.Now().Unix(),
		}
		if env := res.Envelope; env != nil {
			rec.Kind = env.Kind
			rec.Message = env.Message
			if env.Kind == models.KindInfo {
				rec.Message = env.Title
			}
		}
		if err := j.history.Record(ctx, rec); err != nil {
			j.log.Warn().Err(err).Msg("history not recorded")
		}
	}
	if j.devices != nil {
		if err := j.devices.RecordResult(ctx, res); err != nil {
			j.log.Debug().Err(err).Msg("result not published")
		}
	}
}
