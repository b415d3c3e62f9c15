package weather

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liondevhq/weather-tomorrow/internal/logger"
)

// DefaultFetchTimeout bounds a single city's fetch when none is configured.
const DefaultFetchTimeout = 25 * time.Second

// OrchestratorConfig tunes an Orchestrator. Zero values select defaults.
type OrchestratorConfig struct {
	// Workers caps concurrent city fetches; 0 means one worker per city.
	Workers int
	// FetchTimeout bounds fetch and parse for one city.
	FetchTimeout time.Duration
	// Now is the clock the reference hour is read from.
	Now func() time.Time
	// Recorder receives per-city and per-run observations.
	Recorder Recorder
}

// Orchestrator fetches, parses and summarizes forecasts for a batch of
// locations.
type Orchestrator struct {
	fetcher      RawSeriesFetcher
	parser       SeriesParser
	workers      int
	fetchTimeout time.Duration
	now          func() time.Time
	recorder     Recorder
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(fetcher RawSeriesFetcher, parser SeriesParser, cfg OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{
		fetcher:      fetcher,
		parser:       parser,
		workers:      cfg.Workers,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		recorder:     cfg.Recorder,
	}
	if o.fetchTimeout <= 0 {
		o.fetchTimeout = DefaultFetchTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.recorder == nil {
		o.recorder = noopRecorder{}
	}
	return o
}

// FetchSummaries produces one result per location, in input order. The
// reference hour is read once so every city in the run uses the same window.
// Per-city failures are recorded in their slot and never stop the run.
// Cancelling ctx abandons outstanding cities; they are reported as transport
// errors wrapping ctx.Err().
func (o *Orchestrator) FetchSummaries(ctx context.Context, locs []Location, units Units) RunResult {
	started := o.now()
	run := RunResult{
		ID:            uuid.NewString(),
		StartedAt:     started.UTC(),
		ReferenceHour: ReferenceHour(started),
		Units:         units,
		Results:       make([]CityResult, len(locs)),
	}
	for i, loc := range locs {
		run.Results[i].Location = loc
	}
	if len(locs) == 0 {
		return run
	}

	logger.Debugf("run %s: %d cities, reference hour %d, units %s", run.ID, len(locs), run.ReferenceHour, units)
	clock := time.Now()

	workers := o.workers
	if workers <= 0 || workers > len(locs) {
		workers = len(locs)
	}

	// Each slot is written by exactly one worker, so no lock is needed.
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				run.Results[i] = o.processCity(ctx, locs[i], run.ReferenceHour, units)
			}
		}()
	}

dispatch:
	for i := range locs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := range run.Results {
		res := &run.Results[i]
		if res.Summary == nil && res.Err == nil {
			cause := ctx.Err()
			if cause == nil {
				cause = errors.New("city was not processed")
			}
			res.Err = &CityError{Location: res.Location, Kind: ErrTransport, Err: cause}
		}
	}

	run.Duration = time.Since(clock)
	failed := run.Failed()
	o.recorder.ObserveRun(len(locs), failed, run.Duration)
	logger.Infof("run %s: %d/%d cities summarized in %s", run.ID, len(locs)-failed, len(locs), run.Duration.Round(time.Millisecond))

	return run
}

func (o *Orchestrator) processCity(ctx context.Context, loc Location, hour int, units Units) CityResult {
	started := time.Now()
	res := o.summarizeCity(ctx, loc, hour, units)
	outcome := "ok"
	if res.Err != nil {
		outcome = ErrorKind(res.Err)
		logger.Warnf("forecast unavailable: %v", res.Err)
	}
	o.recorder.ObserveCity(outcome, time.Since(started))
	return res
}

func (o *Orchestrator) summarizeCity(ctx context.Context, loc Location, hour int, units Units) CityResult {
	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	payload, err := o.fetcher.Fetch(fetchCtx, loc, units)
	if err != nil {
		return CityResult{Location: loc, Err: &CityError{Location: loc, Kind: ErrTransport, Err: err}}
	}

	series, err := o.parser.Parse(payload)
	if err != nil {
		return CityResult{Location: loc, Err: classify(loc, err, ErrMalformedForecastData)}
	}

	summary, err := Summarize(series, hour, units)
	if err != nil {
		return CityResult{Location: loc, Err: classify(loc, err, ErrMalformedForecastData)}
	}
	summary.TrackedID = loc.ID

	return CityResult{Location: loc, Summary: &summary}
}
