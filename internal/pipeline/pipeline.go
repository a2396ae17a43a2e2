// Package pipeline runs one ingestion of a source: fetch every unit, parse
// its blocks into records and reconcile them into the store, producing a
// run report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"schooldir/internal/fetch"
	"schooldir/internal/normalize"
	"schooldir/internal/reconcile"
	"schooldir/internal/report"
	"schooldir/internal/school"
	"schooldir/internal/sources"
	"schooldir/internal/store"
	"schooldir/internal/upsert"
)

// Fetcher retrieves one page. *fetch.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) (fetch.Page, error)
}

// Store is the persistence surface of a run. *store.Store satisfies it.
type Store interface {
	WithTx(ctx context.Context, fn func(*store.Queries) error) error
	SaveRun(ctx context.Context, r store.RunRecord) error
}

type Pipeline struct {
	store   Store
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Pipeline)

// WithFetcher replaces the HTTP client built from the run config.
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(st Store, opts ...Option) *Pipeline {
	p := &Pipeline{store: st, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run ingests every unit of the configured source. Unit failures are
// recorded in the report and never stop the run; an error is returned only
// when the run cannot start or its report cannot be saved. The report is
// returned in both cases once the run has started.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*report.Run, error) {
	profile, err := sources.Lookup(cfg.SourceID)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	trust := profile.Trust
	if cfg.Trust != nil {
		trust = *cfg.Trust
	}
	units := cfg.Units
	if len(units) == 0 {
		units = profile.Units()
	}

	fetcher := p.fetcher
	if fetcher == nil {
		fetcher = fetch.New(cfg.Delay)
	}

	started := p.now()
	run := report.NewRun(profile.Source, trust, started)
	w := &worker{
		profile:    profile,
		cfg:        cfg,
		trust:      trust,
		fetcher:    fetcher,
		store:      p.store,
		logger:     p.logger.With("source", profile.ID, "run_id", run.ID),
		normalizer: normalize.New(),
		upserter: &upsert.Upserter{
			Region:  cfg.Region,
			Country: cfg.Country,
			City:    cfg.City,
			Force:   cfg.Force,
			RunAt:   store.Timestamp(started),
		},
	}

	w.logger.Info("Ingest run started", "units", len(units), "trust", trust.String(), "force", cfg.Force)

	for i, unit := range units {
		if ctx.Err() != nil {
			skipRemaining(run, units[i:])
			w.logger.Warn("Ingest run cancelled", "skipped_units", len(units)-i)
			break
		}
		w.unit(ctx, run, unit)
	}

	run.FinishedAt = p.now().UTC()
	tot := run.Totals()
	w.logger.Info("Ingest run finished",
		"inserted", tot.Inserted, "updated", tot.Updated, "skipped", tot.Skipped,
		"rejected", tot.Rejected+tot.Unparseable, "errors", tot.Errors,
		"duration", run.FinishedAt.Sub(run.StartedAt))

	if err := p.save(context.WithoutCancel(ctx), run); err != nil {
		w.logger.Error("Failed to save run report", "error", err)
		return run, err
	}
	return run, nil
}

func (p *Pipeline) save(ctx context.Context, run *report.Run) error {
	data, err := run.JSON()
	if err != nil {
		return err
	}
	return p.store.SaveRun(ctx, store.RunRecord{
		ID:         run.ID,
		Source:     run.Source,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Report:     string(data),
	})
}

func skipRemaining(run *report.Run, units []sources.Unit) {
	for _, unit := range units {
		u := run.AddUnit(unit.District, unit.URL)
		u.Status = report.StatusSkipped
	}
}

// worker holds what every unit of a run shares.
type worker struct {
	profile    *sources.Profile
	cfg        Config
	trust      school.Trust
	fetcher    Fetcher
	store      Store
	logger     *slog.Logger
	normalizer *normalize.Normalizer
	reconciler reconcile.Reconciler
	upserter   *upsert.Upserter
}

func (w *worker) unit(ctx context.Context, run *report.Run, unit sources.Unit) {
	u := run.AddUnit(unit.District, unit.URL)
	logger := w.logger.With("district", unit.District, "url", unit.URL)

	page, err := w.fetch(ctx, unit.URL, logger)
	if err != nil {
		if ctx.Err() != nil {
			u.Status = report.StatusSkipped
			return
		}
		u.Fail(err)
		logger.Error("Unit fetch failed", "error", err)
		return
	}

	recs := w.parse(page, unit, u, logger)

	// The page is in hand; finish its writes even if the run is cancelled.
	applied, err := w.apply(context.WithoutCancel(ctx), recs, u)
	if err != nil {
		u.Fail(err)
		logger.Error("Unit write failed, transaction rolled back", "error", err)
		return
	}
	for _, rec := range applied {
		run.Count(rec)
	}

	logger.Info("Unit finished",
		"parsed", u.Parsed, "rejected", u.Rejected, "unparseable", u.Unparseable,
		"inserted", u.Inserted, "updated", u.Updated, "skipped", u.Skipped,
		"warnings", len(u.Warnings))
}

// apply reconciles and upserts every record of a unit in one transaction.
// Counters are only added to the unit once the transaction commits.
func (w *worker) apply(ctx context.Context, recs []school.Record, u *report.Unit) ([]school.Record, error) {
	var inserted, updated, skipped int
	var warnings []report.Warning

	err := w.store.WithTx(ctx, func(q *store.Queries) error {
		seen := make(map[string]bool, len(recs))
		for _, rec := range recs {
			key := identityKey(rec)
			if seen[key] {
				// A second write would overwrite the first and flip back on
				// every rerun.
				warnings = append(warnings, report.Warning{
					Kind:    report.WarnAmbiguousMatch,
					Message: fmt.Sprintf("%q listed more than once with code %q, kept the first", rec.Name, rec.ExternalCode),
				})
				skipped++
				continue
			}
			seen[key] = true

			d, err := w.reconciler.Reconcile(ctx, q, rec)
			if err != nil {
				return err
			}
			if d.Ambiguous() {
				warnings = append(warnings, report.Warning{
					Kind: report.WarnAmbiguousMatch,
					Message: fmt.Sprintf("%q matched %d rows by %s, updated id %d",
						rec.Name, d.Candidates, d.Match, d.ExistingID()),
				})
			}

			out, err := w.upserter.Upsert(ctx, q, rec, d)
			if err != nil {
				return err
			}
			switch out.Kind {
			case upsert.Inserted:
				inserted++
			case upsert.Updated:
				updated++
			case upsert.Skipped:
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.Inserted += inserted
	u.Updated += updated
	u.Skipped += skipped
	u.Warnings = append(u.Warnings, warnings...)
	return recs, nil
}

func identityKey(rec school.Record) string {
	return school.NormalizeKey(rec.Name) + "\x00" + school.NormalizeKey(rec.District) + "\x00" + rec.ExternalCode
}

func (w *worker) fetch(ctx context.Context, url string, logger *slog.Logger) (fetch.Page, error) {
	var page fetch.Page
	opts := fetch.Options{Timeout: w.cfg.Timeout, InsecureSkipVerify: w.cfg.InsecureSkipVerify}

	err := retry(ctx, w.cfg.Attempts, w.cfg.RetryWait, func() error {
		p, err := w.fetcher.Fetch(ctx, url, opts)
		if err != nil {
			var fe *fetch.Error
			if errors.As(err, &fe) && fe.Temporary() {
				logger.Warn("Fetch failed, will retry", "error", err)
				return err
			}
			return permanent(err)
		}
		page = p
		return nil
	})
	return page, err
}
