package ledger

import (
	"errors"
	"testing"
	"time"

	"orb-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entered(pnl float64) *domain.SimulatedTrade {
	return &domain.SimulatedTrade{Entered: true, DollarPnL: pnl, BaseDollarPnL: pnl / 4}
}

func runDay(t *testing.T, l *Ledger, date time.Time, trades ...*domain.SimulatedTrade) (domain.DailyPerformance, domain.EquityCurvePoint) {
	t.Helper()
	if err := l.BeginDay(date); err != nil {
		t.Fatalf("BeginDay: %v", err)
	}
	for _, tr := range trades {
		if err := l.Record(tr); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	d, p, _, err := l.EndDay()
	if err != nil {
		t.Fatalf("EndDay: %v", err)
	}
	return d, p
}

func TestLedger_ZeroTradeDay(t *testing.T) {
	l := New(Config{InitialCapital: 10000, Compounding: true})

	runDay(t, l, day(2023, 1, 3), entered(500))
	before := l.Equity()

	d, p := runDay(t, l, day(2023, 1, 4))

	if l.Equity() != before {
		t.Errorf("equity changed on empty day: %v -> %v", before, l.Equity())
	}
	if p.DayPnL != 0 || p.Equity != before {
		t.Errorf("unexpected curve point %+v", p)
	}
	if d.Candidates != 0 {
		t.Errorf("expected no candidates, got %d", d.Candidates)
	}
	if len(l.Curve()) != 2 {
		t.Errorf("expected 2 curve points, got %d", len(l.Curve()))
	}
}

func TestLedger_YearReset(t *testing.T) {
	l := New(Config{RunID: "r1", InitialCapital: 10000, Compounding: true})

	runDay(t, l, day(2022, 12, 29), entered(2500))
	runDay(t, l, day(2022, 12, 30), entered(-500))

	if err := l.BeginDay(day(2023, 1, 3)); err != nil {
		t.Fatalf("BeginDay: %v", err)
	}
	if l.Equity() != 10000 {
		t.Errorf("expected equity reset to 10000, got %v", l.Equity())
	}
	if err := l.Record(entered(100)); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := l.EndDay(); err != nil {
		t.Fatal(err)
	}
	if err := l.Finish(); err != nil {
		t.Fatal(err)
	}

	years := l.Yearly()
	if len(years) != 2 {
		t.Fatalf("expected 2 years, got %d", len(years))
	}
	y22 := years[0]
	if y22.Year != 2022 || y22.StartEquity != 10000 || y22.EndEquity != 12000 {
		t.Errorf("unexpected 2022 result %+v", y22)
	}
	if y22.YearPnL != 2000 || y22.YearReturnPct != 20 || y22.Trades != 2 {
		t.Errorf("unexpected 2022 pnl %+v", y22)
	}
	if years[1].StartEquity != 10000 || years[1].EndEquity != 10100 {
		t.Errorf("unexpected 2023 result %+v", years[1])
	}
	if years[1].RunID != "r1" {
		t.Errorf("expected run id r1, got %q", years[1].RunID)
	}
}

func TestLedger_ClampToFloor(t *testing.T) {
	l := New(Config{InitialCapital: 1000, Compounding: true})

	_, p := runDay(t, l, day(2023, 2, 1), entered(-1500))

	if !p.Clamped || p.Equity != DefaultFloor {
		t.Errorf("expected clamp to %v, got %+v", DefaultFloor, p)
	}
	if !l.Ruined() {
		t.Error("expected ruined")
	}

	_, p = runDay(t, l, day(2023, 2, 2))
	if p.Clamped {
		t.Error("empty day after clamp must not clamp again")
	}

	if err := l.Finish(); err != nil {
		t.Fatal(err)
	}
	if got := l.Yearly()[0].ClampedDays; got != 1 {
		t.Errorf("expected 1 clamped day, got %d", got)
	}
}

func TestLedger_CustomFloor(t *testing.T) {
	l := New(Config{InitialCapital: 1000, Floor: 50, Compounding: true})
	_, p := runDay(t, l, day(2023, 2, 1), entered(-1000))
	if p.Equity != 50 {
		t.Errorf("expected floor 50, got %v", p.Equity)
	}
}

func TestLedger_FixedMode(t *testing.T) {
	l := New(Config{InitialCapital: 1000})

	d, _ := runDay(t, l, day(2023, 3, 1), entered(40), entered(-10), &domain.SimulatedTrade{})

	if d.Candidates != 3 || d.Entered != 2 || d.Winners != 1 || d.Losers != 1 {
		t.Errorf("unexpected counts %+v", d)
	}
	if d.DollarPnL != 30 || d.BasePnL != 7.5 {
		t.Errorf("unexpected pnl %+v", d)
	}
	if d.EquityEnd != 0 {
		t.Errorf("fixed mode must not track equity, got %v", d.EquityEnd)
	}
	if l.Equity() != 1000 {
		t.Errorf("fixed mode equity moved to %v", l.Equity())
	}

	if err := l.Finish(); err != nil {
		t.Fatal(err)
	}
	if len(l.Curve()) != 0 || len(l.Yearly()) != 0 {
		t.Error("fixed mode must not produce curve or yearly rows")
	}
	if len(l.Daily()) != 1 {
		t.Errorf("expected 1 daily row, got %d", len(l.Daily()))
	}
}

func TestLedger_Errors(t *testing.T) {
	l := New(Config{InitialCapital: 1000, Compounding: true})

	if err := l.Record(entered(1)); !errors.Is(err, ErrNoDay) {
		t.Errorf("expected ErrNoDay, got %v", err)
	}
	if _, _, _, err := l.EndDay(); !errors.Is(err, ErrNoDay) {
		t.Errorf("expected ErrNoDay, got %v", err)
	}

	if err := l.BeginDay(day(2023, 1, 5)); err != nil {
		t.Fatal(err)
	}
	if err := l.BeginDay(day(2023, 1, 6)); !errors.Is(err, ErrDayOpen) {
		t.Errorf("expected ErrDayOpen, got %v", err)
	}
	if err := l.Finish(); !errors.Is(err, ErrDayOpen) {
		t.Errorf("expected ErrDayOpen, got %v", err)
	}
	if _, _, _, err := l.EndDay(); err != nil {
		t.Fatal(err)
	}
	if err := l.BeginDay(day(2023, 1, 5)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", err)
	}
}
