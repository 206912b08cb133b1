package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sunho-park/poswatch/internal/domain"
)

const (
	// qtyEpsilon absorbs floating rounding in quantity comparisons; a change
	// smaller than this is treated as no change.
	qtyEpsilon = 1e-12

	// pnlDecimals is the precision finalized PnL figures are rounded to.
	pnlDecimals = 8

	// settleWindowPad widens the settlement lookup window on both ends to
	// absorb clock skew between us and the exchange ledger.
	settleWindowPad = time.Minute
)

// Classifier runs the reconciliation cycle: it normalizes fresh positions,
// diffs them against the previously persisted snapshot, drives the session
// ledger, reconciles closes, and persists the new snapshot. One cycle runs at
// a time, process-wide.
type Classifier struct {
	mu sync.Mutex

	source     domain.PositionSource
	state      domain.StateStore
	ledger     *SessionLedger
	reconciler *Reconciler
	history    domain.TradeHistory
	archive    domain.TradeArchive // optional long-term archive, best effort
	log        *slog.Logger
	now        func() time.Time
}

func NewClassifier(
	source domain.PositionSource,
	state domain.StateStore,
	ledger *SessionLedger,
	reconciler *Reconciler,
	history domain.TradeHistory,
	archive domain.TradeArchive,
	log *slog.Logger,
) *Classifier {
	return &Classifier{
		source:     source,
		state:      state,
		ledger:     ledger,
		reconciler: reconciler,
		history:    history,
		archive:    archive,
		log:        log.With("component", "classifier"),
		now:        time.Now,
	}
}

// RunCycle executes one full reconciliation cycle. Store read failures
// degrade to safe defaults; store write failures abort the cycle, because an
// unpersisted snapshot or session record risks duplicate events next time.
func (c *Classifier) RunCycle(ctx context.Context) (domain.CycleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	raw, err := c.source.FetchPositions(ctx)
	if err != nil {
		return domain.CycleResult{}, fmt.Errorf("engine: fetch positions: %w", err)
	}
	current := NormalizeAll(raw)

	initDone, err := c.state.InitDone(ctx)
	if err != nil {
		c.log.Warn("init flag read failed, assuming cold start", "error", err)
		initDone = false
	}
	if !initDone {
		return c.initialSync(ctx, current, now)
	}

	prev, err := c.state.GetSnapshot(ctx)
	if err != nil {
		c.log.Warn("previous snapshot read failed, treating as empty", "error", err)
		prev = domain.Snapshot{}
	}

	res := domain.CycleResult{PositionsNow: len(current)}

	for _, key := range sortedKeys(current) {
		cur := current[key]
		prevPos, existed := prev[key]
		if !existed {
			rec := domain.NewSessionRecord(cur, now)
			if err := c.ledger.Save(ctx, key, rec); err != nil {
				return res, fmt.Errorf("engine: persist session %s: %w", key, err)
			}
			res.Counts.Open++
			res.Events = append(res.Events, domain.PositionEvent{
				Kind: domain.EventOpen, Position: cur, Session: rec,
			})
			continue
		}

		rec := c.ledger.Load(ctx, key, cur, now)
		dq := cur.Quantity - prevPos.Quantity
		switch {
		case dq > qtyEpsilon:
			added := math.Max(cur.Value-prevPos.Value, dq*cur.EntryPrice)
			rec.TotalEntryValue += added
			rec.Touch(cur)
			if err := c.ledger.Save(ctx, key, rec); err != nil {
				return res, fmt.Errorf("engine: persist session %s: %w", key, err)
			}
			res.Counts.Add++
			res.Events = append(res.Events, domain.PositionEvent{
				Kind: domain.EventAdd, Position: cur, Prev: prevPos, Session: rec, DeltaQty: dq,
			})
		case dq < -qtyEpsilon:
			removed := math.Max(prevPos.Value-cur.Value, -dq*cur.MarkPrice)
			rec.TotalExitValue += removed
			rec.Touch(cur)
			if err := c.ledger.Save(ctx, key, rec); err != nil {
				return res, fmt.Errorf("engine: persist session %s: %w", key, err)
			}
			res.Counts.Reduce++
			res.Events = append(res.Events, domain.PositionEvent{
				Kind: domain.EventReduce, Position: cur, Prev: prevPos, Session: rec, DeltaQty: -dq,
			})
		default:
			rec.Touch(cur)
			if err := c.ledger.Save(ctx, key, rec); err != nil {
				return res, fmt.Errorf("engine: persist session %s: %w", key, err)
			}
		}
	}

	for _, key := range sortedKeys(prev) {
		if _, still := current[key]; still {
			continue
		}
		prevPos := prev[key]
		ev, err := c.finalizeClose(ctx, key, prevPos, now)
		if err != nil {
			return res, err
		}
		res.Counts.Close++
		res.Events = append(res.Events, ev)
		res.ClosedTrades = append(res.ClosedTrades, *ev.Trade)
	}

	if err := c.state.SetSnapshot(ctx, current); err != nil {
		return res, fmt.Errorf("engine: persist snapshot: %w", err)
	}
	return res, nil
}

// initialSync seeds session records for every live position without emitting
// events, so a cold start is not misread as a burst of fresh opens.
func (c *Classifier) initialSync(ctx context.Context, current domain.Snapshot, now time.Time) (domain.CycleResult, error) {
	for _, key := range sortedKeys(current) {
		// Always a fresh record: a leftover session from before a state reset
		// must not carry its accumulators into the new life.
		rec := domain.NewSessionRecord(current[key], now)
		if err := c.ledger.Save(ctx, key, rec); err != nil {
			return domain.CycleResult{}, fmt.Errorf("engine: seed session %s: %w", key, err)
		}
	}
	if err := c.state.SetSnapshot(ctx, current); err != nil {
		return domain.CycleResult{}, fmt.Errorf("engine: persist snapshot: %w", err)
	}
	if err := c.state.MarkInitDone(ctx); err != nil {
		return domain.CycleResult{}, fmt.Errorf("engine: mark init done: %w", err)
	}
	c.log.Info("initial sync complete", "positions", len(current))
	return domain.CycleResult{InitialSync: true, PositionsNow: len(current)}, nil
}

// finalizeClose settles a position that disappeared from the current
// snapshot: it completes the exit accumulator, reconciles realized PnL, and
// appends the immutable Trade before discarding the session.
func (c *Classifier) finalizeClose(ctx context.Context, key string, prevPos domain.Position, now time.Time) (domain.PositionEvent, error) {
	rec := c.ledger.LoadClosing(ctx, key, prevPos, now)

	qty := rec.LastQty
	if qty <= 0 {
		qty = prevPos.Quantity
	}
	closePrice := rec.LastMarkPrice
	if closePrice <= 0 {
		closePrice = prevPos.MarkPrice
	}
	if closePrice <= 0 {
		closePrice = rec.LastEntryPrice
	}
	if closePrice <= 0 {
		closePrice = prevPos.EntryPrice
	}

	rec.TotalExitValue += qty * closePrice

	est := rec.TotalExitValue - rec.TotalEntryValue
	if rec.Side == domain.SideShort {
		est = -est
	}

	startMs := rec.StartTs.Add(-settleWindowPad).UnixMilli()
	endMs := now.Add(settleWindowPad).UnixMilli()
	settled := c.reconciler.Reconcile(ctx, rec.Symbol, startMs, endMs, est, rec.TotalEntryValue, rec.TotalExitValue)

	// The trade records the price the session opened at, not the exchange's
	// rolling average after adds.
	entryPrice := rec.EntryPriceInit
	if entryPrice <= 0 {
		entryPrice = rec.LastEntryPrice
	}

	tr := domain.Trade{
		ID:              uuid.NewString(),
		Symbol:          rec.Symbol,
		Side:            rec.Side,
		StartTs:         rec.StartTs,
		CloseTs:         now,
		EntryPrice:      entryPrice,
		ClosePrice:      closePrice,
		TotalEntryValue: roundTo(rec.TotalEntryValue, pnlDecimals),
		TotalExitValue:  roundTo(rec.TotalExitValue, pnlDecimals),
		ClosedPnL:       roundTo(settled.ClosedPnL, pnlDecimals),
		FeeFunding:      roundTo(settled.FeeFunding, pnlDecimals),
		MarginMode:      rec.MarginMode,
		Leverage:        rec.Leverage,
	}
	tr.Realized = roundTo(tr.ClosedPnL+tr.FeeFunding, pnlDecimals)

	if err := c.history.Append(ctx, tr); err != nil {
		return domain.PositionEvent{}, fmt.Errorf("engine: append trade %s: %w", key, err)
	}
	if c.archive != nil {
		if err := c.archive.Insert(ctx, tr); err != nil {
			c.log.Warn("trade archive insert failed", "key", key, "error", err)
		}
	}
	if err := c.ledger.Discard(ctx, key); err != nil {
		return domain.PositionEvent{}, fmt.Errorf("engine: discard session %s: %w", key, err)
	}

	return domain.PositionEvent{
		Kind:     domain.EventClose,
		Position: prevPos,
		Session:  rec,
		Trade:    &tr,
	}, nil
}

func roundTo(f float64, decimals int) float64 {
	pow := math.Pow10(decimals)
	return math.Round(f*pow) / pow
}

func sortedKeys(snap domain.Snapshot) []string {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
