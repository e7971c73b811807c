package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/accounting"
	"github.com/nummix/backoffice/internal/shared"
	_ "github.com/nummix/backoffice/testing"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func expectDecimal(t *testing.T, label, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s got %s", label, want, got)
	}
}

func entry(account string, side accounting.Side, amount string) accounting.Entry {
	return accounting.Entry{Account: account, Side: side, Amount: dec(amount)}
}

func scenario() []accounting.Transaction {
	return []accounting.Transaction{
		{
			ID:        uuid.New(),
			Date:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Reference: "INV-1",
			Entries:   []accounting.Entry{entry("Cash", accounting.SideDebit, "1000"), entry("Sales", accounting.SideCredit, "1000")},
		},
		{
			ID:        uuid.New(),
			Date:      time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Reference: "EXP-1",
			Entries:   []accounting.Entry{entry("Expense", accounting.SideDebit, "300"), entry("Cash", accounting.SideCredit, "300")},
		},
	}
}

func newBuilder() Builder {
	return NewBuilder(accounting.DefaultChart(), 0)
}

var now = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)

func TestDashboard(t *testing.T) {
	stats, err := newBuilder().Dashboard(scenario())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	expectDecimal(t, "income", "1000", stats.TotalIncome)
	expectDecimal(t, "expense", "300", stats.TotalExpense)
	expectDecimal(t, "net", "700", stats.NetIncome)
}

func TestTotalAssets(t *testing.T) {
	txs := append(scenario(), accounting.Transaction{
		Date:    time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Entries: []accounting.Entry{entry("Bank", accounting.SideDebit, "200"), entry("Cash", accounting.SideCredit, "200")},
	})
	assets, err := newBuilder().TotalAssets(txs)
	if err != nil {
		t.Fatalf("total assets: %v", err)
	}
	if len(assets.Accounts) != 2 {
		t.Fatalf("expected Cash and Bank got %d accounts", len(assets.Accounts))
	}
	cash := assets.Accounts[0]
	expectDecimal(t, "cash debit", "1000", cash.TotalDebit)
	expectDecimal(t, "cash credit", "500", cash.TotalCredit)
	expectDecimal(t, "cash balance", "500", cash.Balance)
	expectDecimal(t, "total", "700", assets.Total)
}

func TestBalanceBreakdown(t *testing.T) {
	txs := []accounting.Transaction{
		{Date: now, Entries: []accounting.Entry{entry("Cash", accounting.SideDebit, "600"), entry("Owner Equity", accounting.SideCredit, "600")}},
		{Date: now, Entries: []accounting.Entry{entry("Bank", accounting.SideDebit, "200"), entry("Accounts Payable", accounting.SideCredit, "200")}},
	}
	bb, err := newBuilder().BalanceBreakdown(txs)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	expectDecimal(t, "grand total", "1600", bb.GrandTotal)
	expectDecimal(t, "assets pct", "50", bb.Groups[0].Percentage)
	expectDecimal(t, "liabilities pct", "12.5", bb.Groups[1].Percentage)
	expectDecimal(t, "equity pct", "37.5", bb.Groups[2].Percentage)
	if bb.Denominator != BreakdownDenominator {
		t.Fatalf("expected denominator label, got %q", bb.Denominator)
	}
}

func TestBalanceBreakdownRoundsToTwoPlaces(t *testing.T) {
	txs := []accounting.Transaction{
		{Date: now, Entries: []accounting.Entry{entry("Cash", accounting.SideDebit, "100"), entry("Owner Equity", accounting.SideCredit, "100")}},
		{Date: now, Entries: []accounting.Entry{entry("Bank", accounting.SideDebit, "100"), entry("Accounts Payable", accounting.SideCredit, "100")}},
		{Date: now, Entries: []accounting.Entry{entry("Bank", accounting.SideDebit, "100"), entry("Accounts Payable", accounting.SideCredit, "100")}},
	}
	bb, err := newBuilder().BalanceBreakdown(txs)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	expectDecimal(t, "equity pct", "16.67", bb.Groups[2].Percentage)
}

func TestEmptySnapshotYieldsZeros(t *testing.T) {
	b := newBuilder()
	for _, kind := range Kinds {
		report, err := b.Build(kind, nil, now)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", kind, err)
		}
		if report.Kind() != kind {
			t.Fatalf("expected kind %s got %s", kind, report.Kind())
		}
	}
	bb, _ := b.BalanceBreakdown(nil)
	for _, grp := range bb.Groups {
		expectDecimal(t, string(grp.Category), "0", grp.Percentage)
	}
	stats, err := b.Dashboard(nil)
	if err != nil {
		t.Fatalf("empty dashboard: %v", err)
	}
	expectDecimal(t, "net", "0", stats.NetIncome)
}

func TestGeneralLedgerTotals(t *testing.T) {
	gl, err := newBuilder().GeneralLedger(scenario())
	if err != nil {
		t.Fatalf("general ledger: %v", err)
	}
	expectDecimal(t, "assets", "700", gl.Totals.Assets)
	expectDecimal(t, "income", "1000", gl.Totals.Income)
	expectDecimal(t, "expense", "300", gl.Totals.Expense)
	expectDecimal(t, "liabilities", "0", gl.Totals.Liabilities)

	cash, ok := gl.Ledger.Account("Cash")
	if !ok {
		t.Fatalf("cash ledger missing")
	}
	expectDecimal(t, "first", "1000", cash.Lines[0].Balance)
	expectDecimal(t, "second", "700", cash.Lines[1].Balance)

	table := gl.Table()
	if len(table.Rows) != 4 {
		t.Fatalf("expected one row per ledger line, got %d", len(table.Rows))
	}
}

func TestMonthlyTrend(t *testing.T) {
	trend, err := NewBuilder(accounting.DefaultChart(), 3).MonthlyTrend(scenario(), now)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Months) != 3 || trend.Months[2].Month != "2025-01" {
		t.Fatalf("unexpected months %+v", trend.Months)
	}
	expectDecimal(t, "jan sales", "1000", trend.Months[2].Totals["Sales"])
	expectDecimal(t, "jan expense", "300", trend.Months[2].Totals["Expense"])
	table := trend.Table()
	if len(table.Columns) != 3 || table.Columns[0] != "Month" {
		t.Fatalf("unexpected columns %v", table.Columns)
	}
}

func TestTrialBalanceBalances(t *testing.T) {
	report, err := newBuilder().Build(KindTrialBalance, scenario(), now)
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	tb := report.(TrialBalance)
	if !tb.Balanced {
		t.Fatalf("expected balanced trial balance")
	}
	expectDecimal(t, "debit", "1300", tb.TotalDebit)
	if tb.Groups[0].Category != accounting.CategoryAsset {
		t.Fatalf("expected assets first got %s", tb.Groups[0].Category)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	b := newBuilder()
	txs := scenario()
	for _, kind := range Kinds {
		first, err := b.Build(kind, txs, now)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		second, _ := b.Build(kind, txs, now)
		a, _ := json.Marshal(first)
		c, _ := json.Marshal(second)
		if !bytes.Equal(a, c) {
			t.Fatalf("%s: output differs between runs", kind)
		}
	}
}

func TestBuildFailsOnMalformedSnapshot(t *testing.T) {
	snapshots := map[string]struct {
		txs  []accounting.Transaction
		want error
	}{
		"account missing from chart": {
			txs: []accounting.Transaction{{
				Date:    now,
				Entries: []accounting.Entry{entry("Goodwill", accounting.SideDebit, "1"), entry("Sales", accounting.SideCredit, "1")},
			}},
			want: accounting.ErrUnknownAccount,
		},
		"side outside debit and credit": {
			txs: []accounting.Transaction{{
				Date:    now,
				Entries: []accounting.Entry{entry("Cash", accounting.SideDebit, "1"), entry("Sales", accounting.Side("CREDIT"), "1")},
			}},
			want: accounting.ErrInvalidSide,
		},
	}
	b := newBuilder()
	for name, snap := range snapshots {
		for _, kind := range Kinds {
			if _, err := b.Build(kind, snap.txs, now); !errors.Is(err, snap.want) {
				t.Fatalf("%s: %s expected %v got %v", name, kind, snap.want, err)
			}
		}
	}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("Balance-Breakdown")
	if err != nil || kind != KindBalanceBreakdown {
		t.Fatalf("unexpected parse result %s %v", kind, err)
	}
	if _, err := ParseKind("cash-flow"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestPercentage(t *testing.T) {
	expectDecimal(t, "zero total", "0", Percentage(dec("5"), decimal.Zero))
	expectDecimal(t, "third", "33.33", Percentage(dec("1"), dec("3")))
}

type stubSource struct {
	txs   []accounting.Transaction
	owner uuid.UUID
}

func (s *stubSource) FindTransactionsByOwner(_ context.Context, owner uuid.UUID, _ *accounting.DateRange) ([]accounting.Transaction, error) {
	s.owner = owner
	return s.txs, nil
}

type countingMetrics map[string]int

func (c countingMetrics) ReportBuilt(kind string) { c[kind]++ }

func TestServiceBuildsFromOwnerSnapshot(t *testing.T) {
	source := &stubSource{txs: scenario()}
	metrics := countingMetrics{}
	svc := NewService(source, newBuilder())
	svc.WithMetrics(metrics)
	svc.WithNow(func() time.Time { return now })

	owner := uuid.New()
	stats, err := svc.Dashboard(context.Background(), owner)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	expectDecimal(t, "net", "700", stats.NetIncome)
	if source.owner != owner {
		t.Fatalf("expected snapshot for owner %s", owner)
	}
	if metrics["dashboard"] != 1 {
		t.Fatalf("expected report counter increment")
	}
}
