package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunho-park/poswatch/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPositions struct {
	recs []domain.RawRecord
	err  error
}

func (s *stubPositions) FetchPositions(ctx context.Context) ([]domain.RawRecord, error) {
	return s.recs, s.err
}

type stubSettlements struct {
	recs []domain.RawRecord
	err  error
}

func (s *stubSettlements) FetchSettlements(ctx context.Context, symbol string, startMs, endMs int64) ([]domain.RawRecord, error) {
	return s.recs, s.err
}

type memState struct {
	snap    domain.Snapshot
	hasSnap bool
	init    bool
}

func (m *memState) GetSnapshot(ctx context.Context) (domain.Snapshot, error) {
	if !m.hasSnap {
		return nil, domain.ErrNotFound
	}
	return m.snap, nil
}

func (m *memState) SetSnapshot(ctx context.Context, snap domain.Snapshot) error {
	m.snap, m.hasSnap = snap, true
	return nil
}

func (m *memState) InitDone(ctx context.Context) (bool, error) { return m.init, nil }
func (m *memState) MarkInitDone(ctx context.Context) error     { m.init = true; return nil }
func (m *memState) Reset(ctx context.Context) error {
	m.snap, m.hasSnap, m.init = nil, false, false
	return nil
}

type memSessions struct {
	m map[string]domain.SessionRecord
}

func newMemSessions() *memSessions { return &memSessions{m: map[string]domain.SessionRecord{}} }

func (s *memSessions) Get(ctx context.Context, key string) (domain.SessionRecord, error) {
	rec, ok := s.m[key]
	if !ok {
		return domain.SessionRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memSessions) Put(ctx context.Context, key string, rec domain.SessionRecord) error {
	s.m[key] = rec
	return nil
}

func (s *memSessions) Delete(ctx context.Context, key string) error {
	delete(s.m, key)
	return nil
}

type memHistory struct {
	trades []domain.Trade
}

func (h *memHistory) Append(ctx context.Context, tr domain.Trade) error {
	h.trades = append(h.trades, tr)
	return nil
}

func (h *memHistory) ListDay(ctx context.Context, day string) ([]domain.Trade, error) {
	return h.trades, nil
}

type harness struct {
	source   *stubPositions
	settle   *stubSettlements
	state    *memState
	sessions *memSessions
	history  *memHistory
	cls      *Classifier
}

func newHarness(t *testing.T, feeRate float64) *harness {
	t.Helper()
	log := discardLogger()
	h := &harness{
		source:   &stubPositions{},
		settle:   &stubSettlements{},
		state:    &memState{},
		sessions: newMemSessions(),
		history:  &memHistory{},
	}
	rec := NewReconciler(h.settle, feeRate, time.Second, log)
	ledger := NewSessionLedger(h.sessions, log)
	h.cls = NewClassifier(h.source, h.state, ledger, rec, h.history, nil, log)
	return h
}

func rawLong(symbol string, qty, entry, mark float64) domain.RawRecord {
	return domain.RawRecord{
		"symbol":       symbol,
		"positionAmt":  qty,
		"positionSide": "LONG",
		"avgPrice":     entry,
		"markPrice":    mark,
		"leverage":     10.0,
	}
}

func TestNormalizeAliasesAndDerivation(t *testing.T) {
	p, ok := Normalize(domain.RawRecord{
		"ticker":     "BTC-USDT",
		"holdVolume": "0.5",
		"holdSide":   "short",
		"openPrice":  "50,000",
		"lastPrice":  "51000",
		"leverage":   "20",
	})
	require.True(t, ok)
	assert.Equal(t, "BTC-USDT", p.Symbol)
	assert.Equal(t, "BTC", p.Base)
	assert.Equal(t, domain.SideShort, p.Side)
	assert.InDelta(t, 0.5, p.Quantity, 1e-12)
	assert.InDelta(t, 50000, p.EntryPrice, 1e-9)
	assert.InDelta(t, 51000, p.MarkPrice, 1e-9)
	assert.InDelta(t, 0.5*51000, p.Value, 1e-9)
	assert.InDelta(t, 0.5*51000/20, p.Margin, 1e-9)
}

func TestNormalizeSideFromSignedQuantity(t *testing.T) {
	p, ok := Normalize(domain.RawRecord{"symbol": "ETHUSDT", "positionAmt": -2.0, "markPrice": 3000.0})
	require.True(t, ok)
	assert.Equal(t, domain.SideShort, p.Side)
	assert.InDelta(t, 2.0, p.Quantity, 1e-12)
}

func TestNormalizeRejects(t *testing.T) {
	_, ok := Normalize(domain.RawRecord{"positionAmt": 1.0})
	assert.False(t, ok, "no symbol")

	_, ok = Normalize(domain.RawRecord{"symbol": "BTCUSDT", "positionAmt": 0.0})
	assert.False(t, ok, "zero quantity")
}

func TestNormalizeQuantityFallsBackToAvailable(t *testing.T) {
	p, ok := Normalize(domain.RawRecord{"symbol": "XRPUSDT", "availableAmt": "100", "markPrice": 2.0})
	require.True(t, ok)
	assert.InDelta(t, 100, p.Quantity, 1e-12)
}

func TestNormalizeLeverageBackDerived(t *testing.T) {
	p, ok := Normalize(domain.RawRecord{
		"symbol":      "SOLUSDT",
		"positionAmt": 10.0,
		"markPrice":   100.0,
		"margin":      200.0,
	})
	require.True(t, ok)
	assert.InDelta(t, 5, p.Leverage, 1e-9) // 1000 notional / 200 margin
}

func TestColdStartSuppression(t *testing.T) {
	h := newHarness(t, 0.0005)
	h.source.recs = []domain.RawRecord{
		rawLong("BTCUSDT", 1, 100, 100),
		rawLong("ETHUSDT", 2, 50, 50),
		rawLong("SOLUSDT", 3, 10, 10),
	}

	res, err := h.cls.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.InitialSync)
	assert.Equal(t, domain.EventCounts{}, res.Counts)
	assert.Empty(t, res.Events)
	assert.Len(t, h.sessions.m, 3)
	assert.True(t, h.state.init)
	assert.Len(t, h.state.snap, 3)
}

func TestNoChangeCycleIsIdempotent(t *testing.T) {
	h := newHarness(t, 0.0005)
	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1, 100, 100)}

	_, err := h.cls.RunCycle(context.Background())
	require.NoError(t, err)

	res, err := h.cls.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.Counts.Total())
	before := h.sessions.m["BTCUSDT|Long"]

	res, err = h.cls.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counts.Total())
	after := h.sessions.m["BTCUSDT|Long"]
	assert.Equal(t, before.TotalEntryValue, after.TotalEntryValue)
	assert.Equal(t, before.TotalExitValue, after.TotalExitValue)
}

func TestOpenAddCloseLifecycle(t *testing.T) {
	h := newHarness(t, 0.0005)
	ctx := context.Background()
	key := "BTCUSDT|Long"

	// Seed the init flag with an empty book so the first real position opens.
	h.source.recs = nil
	_, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)

	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1, 100, 100)}
	res, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Open)
	require.Len(t, res.Events, 1)
	assert.Equal(t, domain.EventOpen, res.Events[0].Kind)
	assert.InDelta(t, 100, h.sessions.m[key].TotalEntryValue, 1e-9)

	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1.5, 100, 100)}
	res, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Add)
	assert.InDelta(t, 150, h.sessions.m[key].TotalEntryValue, 1e-9)

	// Mark drifts to 120 with no quantity change: no event, cache refreshed.
	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1.5, 100, 120)}
	res, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counts.Total())
	assert.InDelta(t, 120, h.sessions.m[key].LastMarkPrice, 1e-9)

	// Position disappears: close at the last observed mark.
	h.source.recs = nil
	res, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Close)
	require.Len(t, res.ClosedTrades, 1)
	tr := res.ClosedTrades[0]
	assert.InDelta(t, 150, tr.TotalEntryValue, 1e-9)
	assert.InDelta(t, 180, tr.TotalExitValue, 1e-9)
	assert.InDelta(t, 30, tr.ClosedPnL, 1e-9)
	assert.InDelta(t, -(150+180)*0.0005, tr.FeeFunding, 1e-9)
	assert.InDelta(t, tr.ClosedPnL+tr.FeeFunding, tr.Realized, 1e-12)
	assert.NotContains(t, h.sessions.m, key)
	require.Len(t, h.history.trades, 1)
}

func TestCloseRecordsInitialEntryPrice(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	h.source.recs = nil
	_, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)

	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1, 100, 100)}
	_, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)

	// An add moves the exchange's rolling average entry to 110; the session's
	// opening price stays the trade's entry price.
	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1.5, 110, 110)}
	res, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Counts.Add)

	h.source.recs = nil
	res, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, res.ClosedTrades, 1)
	assert.InDelta(t, 100, res.ClosedTrades[0].EntryPrice, 1e-9)
}

func TestColdStartDiscardsStaleSessions(t *testing.T) {
	h := newHarness(t, 0.0005)
	ctx := context.Background()
	key := "BTCUSDT|Long"

	// A session left behind from before a state reset must not leak its
	// accumulators into the re-seeded book.
	h.sessions.m[key] = domain.SessionRecord{
		Symbol:          "BTCUSDT",
		Side:            domain.SideLong,
		TotalEntryValue: 9999,
		TotalExitValue:  8888,
	}

	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1, 100, 100)}
	res, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)
	require.True(t, res.InitialSync)

	rec := h.sessions.m[key]
	assert.InDelta(t, 100, rec.TotalEntryValue, 1e-9)
	assert.Zero(t, rec.TotalExitValue)
	assert.InDelta(t, 100, rec.EntryPriceInit, 1e-9)
}

func TestShortClosedPnLSign(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	short := domain.RawRecord{
		"symbol":       "BTCUSDT",
		"positionAmt":  10.0,
		"positionSide": "SHORT",
		"avgPrice":     100.0,
		"markPrice":    100.0,
	}
	h.source.recs = nil
	_, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)

	h.source.recs = []domain.RawRecord{short}
	_, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)

	// Mark rises to 110 against the short, then the position closes.
	short["markPrice"] = 110.0
	h.source.recs = []domain.RawRecord{short}
	_, err = h.cls.RunCycle(ctx)
	require.NoError(t, err)

	h.source.recs = nil
	res, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, res.ClosedTrades, 1)
	tr := res.ClosedTrades[0]
	assert.InDelta(t, 1000, tr.TotalEntryValue, 1e-9)
	assert.InDelta(t, 1100, tr.TotalExitValue, 1e-9)
	assert.InDelta(t, -100, tr.ClosedPnL, 1e-9)
	assert.InDelta(t, -100, tr.Realized, 1e-9)
}

func TestReconcilerSettlementPath(t *testing.T) {
	settle := &stubSettlements{recs: []domain.RawRecord{
		{"symbol": "ETHUSDT", "income": 50.0, "incomeType": "REALIZED_PNL"},
		{"symbol": "BTCUSDT", "income": 10.0, "incomeType": "REALIZED_PNL"},
		{"symbol": "BTCUSDT", "income": -1.0, "incomeType": "COMMISSION"},
		{"symbol": "BTCUSDT", "income": -0.25, "incomeType": "FUNDING_FEE"},
	}}
	r := NewReconciler(settle, 0.0005, time.Second, discardLogger())

	res := r.Reconcile(context.Background(), "BTC-USDT", 0, 1, 999, 1000, 1000)
	assert.True(t, res.Settled)
	assert.InDelta(t, 10, res.ClosedPnL, 1e-9)
	assert.InDelta(t, -1.25, res.FeeFunding, 1e-9)
	assert.InDelta(t, 8.75, res.Realized, 1e-9)
}

func TestReconcilerFallbackOnEmptyLedger(t *testing.T) {
	r := NewReconciler(&stubSettlements{}, 0.0005, time.Second, discardLogger())

	res := r.Reconcile(context.Background(), "BTCUSDT", 0, 1, 100, 1000, 1100)
	assert.False(t, res.Settled)
	assert.InDelta(t, 100, res.ClosedPnL, 1e-9)
	assert.InDelta(t, -(1000.0+1100.0)*0.0005, res.FeeFunding, 1e-9)
	assert.InDelta(t, res.ClosedPnL+res.FeeFunding, res.Realized, 1e-12)
}

func TestReconcilerFallbackOnFetchError(t *testing.T) {
	r := NewReconciler(&stubSettlements{err: errors.New("exchange down")}, 0.001, time.Second, discardLogger())

	res := r.Reconcile(context.Background(), "BTCUSDT", 0, 1, -5, 200, 100)
	assert.False(t, res.Settled)
	assert.InDelta(t, -5, res.ClosedPnL, 1e-9)
	assert.InDelta(t, -0.3, res.FeeFunding, 1e-9)
}

func TestSymbolMatches(t *testing.T) {
	assert.True(t, symbolMatches("BTC-USDT", "BTCUSDT"))
	assert.True(t, symbolMatches("BTCUSDT", "btc/usdt"))
	assert.True(t, symbolMatches("BTC-USDT", "BTC"))
	assert.False(t, symbolMatches("BTC-USDT", "ETHUSDT"))
	// Funding entries sometimes carry no symbol; they still count.
	assert.True(t, symbolMatches("BTCUSDT", ""))
}

func TestReconcilerCountsSymbollessFunding(t *testing.T) {
	settle := &stubSettlements{recs: []domain.RawRecord{
		{"symbol": "BTCUSDT", "income": 10.0, "incomeType": "REALIZED_PNL"},
		{"income": -0.4, "incomeType": "FUNDING_FEE"}, // no symbol field
	}}
	r := NewReconciler(settle, 0.0005, time.Second, discardLogger())

	res := r.Reconcile(context.Background(), "BTC-USDT", 0, 1, 999, 1000, 1000)
	assert.True(t, res.Settled)
	assert.InDelta(t, 10, res.ClosedPnL, 1e-9)
	assert.InDelta(t, -0.4, res.FeeFunding, 1e-9)
	assert.InDelta(t, 9.6, res.Realized, 1e-9)
}

func TestEpsilonQuantityDriftIsNoChange(t *testing.T) {
	h := newHarness(t, 0.0005)
	ctx := context.Background()

	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1, 100, 100)}
	_, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)

	h.source.recs = []domain.RawRecord{rawLong("BTCUSDT", 1+1e-13, 100, 100)}
	res, err := h.cls.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counts.Total())
}

func TestFetchFailureAbortsCycle(t *testing.T) {
	h := newHarness(t, 0.0005)
	h.source.err = errors.New("timeout")

	_, err := h.cls.RunCycle(context.Background())
	require.Error(t, err)
	assert.False(t, h.state.init, "failed cycle must not mark init done")
}
