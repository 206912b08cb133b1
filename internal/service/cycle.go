// Package service coordinates the reconciliation engine with the alerting
// layer: one entry point runs a cycle, renders each lifecycle event, and
// delivers the resulting messages.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
	"github.com/sunho-park/poswatch/internal/engine"
	"github.com/sunho-park/poswatch/internal/notify"
	"github.com/sunho-park/poswatch/internal/render"
	"github.com/sunho-park/poswatch/internal/report"
)

// cycleLockTTL bounds how long a crashed replica can block the others.
const cycleLockTTL = 60 * time.Second

// ErrCycleBusy means another replica holds the cycle lock right now.
var ErrCycleBusy = errors.New("service: reconciliation cycle already running")

// DayExporter dumps one day's closed trades to long-term storage.
type DayExporter interface {
	ExportDay(ctx context.Context, day string) (int, error)
}

// CycleRunner runs reconciliation cycles and fans the classified events out
// as alerts.
type CycleRunner struct {
	classifier *engine.Classifier
	locks      domain.LockManager
	notifier   *notify.Notifier
	reporter   *report.Reporter
	exporter   DayExporter // optional
	log        *slog.Logger
}

func NewCycleRunner(
	classifier *engine.Classifier,
	locks domain.LockManager,
	notifier *notify.Notifier,
	reporter *report.Reporter,
	exporter DayExporter,
	log *slog.Logger,
) *CycleRunner {
	return &CycleRunner{
		classifier: classifier,
		locks:      locks,
		notifier:   notifier,
		reporter:   reporter,
		exporter:   exporter,
		log:        log.With("component", "cycle"),
	}
}

// Run executes one reconciliation cycle under the cross-replica lock and,
// when sendAlerts is set, delivers one alert per lifecycle event. The
// automatic daily report is checked on the same trigger cadence.
func (c *CycleRunner) Run(ctx context.Context, sendAlerts bool) (domain.CycleResult, report.AutoResult, error) {
	unlock, err := c.locks.Acquire(ctx, "positions_cycle", cycleLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.CycleResult{}, report.AutoResult{}, ErrCycleBusy
		}
		// A lock-store failure must not stop reconciliation; the in-process
		// mutex still serializes cycles within this replica.
		c.log.Warn("cycle lock unavailable, proceeding locally", "error", err)
		unlock = func() {}
	}
	defer unlock()

	res, err := c.classifier.RunCycle(ctx)
	if err != nil {
		return res, report.AutoResult{}, err
	}

	if sendAlerts && !res.InitialSync {
		for _, ev := range res.Events {
			if msg := renderEvent(ev); msg != "" {
				c.notifier.PositionAlert(ctx, msg)
			}
		}
	}

	auto := c.reporter.MaybeAutoReport(ctx)
	if auto.Sent && c.exporter != nil {
		// The automatic report marks end-of-day; dump the day's trades to
		// long-term storage on the same trigger. Best effort.
		day := auto.Slot
		if len(day) >= 10 {
			day = day[:10]
		}
		if n, err := c.exporter.ExportDay(ctx, day); err != nil {
			c.log.Warn("trade export failed", "day", day, "error", err)
		} else if n > 0 {
			c.log.Info("trade export complete", "day", day, "trades", n)
		}
	}

	c.log.Info("cycle complete",
		"positions", res.PositionsNow,
		"open", res.Counts.Open,
		"add", res.Counts.Add,
		"reduce", res.Counts.Reduce,
		"close", res.Counts.Close,
		"initial_sync", res.InitialSync,
	)
	return res, auto, nil
}

func renderEvent(ev domain.PositionEvent) string {
	switch ev.Kind {
	case domain.EventOpen:
		return render.Open(ev.Position)
	case domain.EventAdd:
		return render.Add(ev.Prev, ev.Position)
	case domain.EventReduce:
		return render.Reduce(ev.Prev, ev.Position)
	case domain.EventClose:
		if ev.Trade != nil {
			return render.Close(*ev.Trade)
		}
	}
	return ""
}
