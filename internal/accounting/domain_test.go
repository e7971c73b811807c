package accounting

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nummix/backoffice/internal/shared"
)

func TestValidateEntries(t *testing.T) {
	chart := DefaultChart()
	cases := []struct {
		name    string
		entries []Entry
		want    error
	}{
		{name: "balanced", entries: []Entry{
			{Account: "Cash", Side: SideDebit, Amount: dec("100.50")},
			{Account: "Sales", Side: SideCredit, Amount: dec("100.5")},
		}},
		{name: "three legs", entries: []Entry{
			{Account: "Cash", Side: SideDebit, Amount: dec("60")},
			{Account: "Bank", Side: SideDebit, Amount: dec("40")},
			{Account: "Sales", Side: SideCredit, Amount: dec("100")},
		}},
		{name: "zero amounts", entries: []Entry{
			{Account: "Cash", Side: SideDebit, Amount: dec("0")},
			{Account: "Sales", Side: SideCredit, Amount: dec("0")},
		}},
		{name: "single entry", entries: []Entry{{Account: "Cash", Side: SideDebit, Amount: dec("1")}}, want: ErrTooFewEntries},
		{name: "empty", want: ErrTooFewEntries},
		{name: "unbalanced", entries: []Entry{
			{Account: "Cash", Side: SideDebit, Amount: dec("100")},
			{Account: "Sales", Side: SideCredit, Amount: dec("99.99")},
		}, want: ErrUnbalanced},
		{name: "unknown account", entries: []Entry{
			{Account: "Inventory", Side: SideDebit, Amount: dec("1")},
			{Account: "Sales", Side: SideCredit, Amount: dec("1")},
		}, want: ErrUnknownAccount},
		{name: "account names are exact", entries: []Entry{
			{Account: "cash", Side: SideDebit, Amount: dec("1")},
			{Account: "Sales", Side: SideCredit, Amount: dec("1")},
		}, want: ErrUnknownAccount},
		{name: "negative", entries: []Entry{
			{Account: "Cash", Side: SideDebit, Amount: dec("-1")},
			{Account: "Sales", Side: SideCredit, Amount: dec("-1")},
		}, want: ErrNegativeAmount},
		{name: "sub cent", entries: []Entry{
			{Account: "Cash", Side: SideDebit, Amount: dec("0.001")},
			{Account: "Sales", Side: SideCredit, Amount: dec("0.001")},
		}, want: ErrAmountPrecision},
		{name: "bad side", entries: []Entry{
			{Account: "Cash", Side: "left", Amount: dec("1")},
			{Account: "Sales", Side: SideCredit, Amount: dec("1")},
		}, want: ErrInvalidSide},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEntries(chart, tc.entries)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateTransactionInputValidate(t *testing.T) {
	chart := DefaultChart()
	entries := []Entry{
		{Account: "Cash", Side: SideDebit, Amount: dec("10")},
		{Account: "Sales", Side: SideCredit, Amount: dec("10")},
	}
	in := CreateTransactionInput{Date: day(2025, 1, 1), Reference: "  ", Entries: entries}
	assert.ErrorIs(t, in.Validate(chart), ErrReferenceRequired)

	in = CreateTransactionInput{Reference: "R-1", Entries: entries}
	assert.ErrorIs(t, in.Validate(chart), ErrDateRequired)

	in = CreateTransactionInput{Date: day(2025, 1, 1), Reference: "R-1", Entries: entries}
	assert.NoError(t, in.Validate(chart))
}

func TestUpdateTransactionInputSkipsEntriesWhenAbsent(t *testing.T) {
	chart := DefaultChart()
	desc := "updated"
	in := UpdateTransactionInput{Description: &desc}
	require.NoError(t, in.Validate(chart))

	unbalanced := []Entry{
		{Account: "Cash", Side: SideDebit, Amount: dec("10")},
		{Account: "Sales", Side: SideCredit, Amount: dec("5")},
	}
	in.Entries = &unbalanced
	require.ErrorIs(t, in.Validate(chart), ErrUnbalanced)
}

func TestUpdateTransactionInputApply(t *testing.T) {
	original := Transaction{Reference: "R-1", Description: "old", Date: day(2025, 1, 1), Entries: sampleTransactions()[0].Entries}
	newDate := day(2025, 2, 2)
	ref := " R-2 "
	applied := UpdateTransactionInput{Date: &newDate, Reference: &ref}.Apply(original)
	assert.Equal(t, "R-2", applied.Reference)
	assert.Equal(t, "old", applied.Description)
	assert.True(t, applied.Date.Equal(newDate))
	assert.Len(t, applied.Entries, 2)
}

func TestChartClassify(t *testing.T) {
	chart := DefaultChart()
	cases := map[string]Account{
		"Cash":    {Name: "Cash", Category: CategoryAsset, NormalSide: SideDebit},
		"Bank":    {Name: "Bank", Category: CategoryAsset, NormalSide: SideDebit},
		"Sales":   {Name: "Sales", Category: CategoryIncome, NormalSide: SideCredit},
		"Expense": {Name: "Expense", Category: CategoryExpense, NormalSide: SideDebit},
	}
	for name, want := range cases {
		got, err := chart.Classify(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := chart.Classify("Goodwill")
	assert.True(t, errors.Is(err, ErrUnknownAccount))
}

func TestNewChartRejectsInvalidAccounts(t *testing.T) {
	_, err := NewChart(Account{Name: "Cash", Category: CategoryAsset, NormalSide: SideDebit}, Account{Name: "Cash", Category: CategoryAsset, NormalSide: SideDebit})
	assert.Error(t, err)
	_, err = NewChart(Account{Name: "Cash", Category: "stuff", NormalSide: SideDebit})
	assert.Error(t, err)
	_, err = NewChart(Account{Name: "Cash", Category: CategoryAsset})
	assert.Error(t, err)

	custom, err := NewChart(Account{Name: "Till", Category: CategoryAsset, NormalSide: SideDebit})
	require.NoError(t, err)
	assert.Equal(t, []string{"Till"}, custom.AccountsIn(CategoryAsset))
	assert.Empty(t, custom.AccountsIn(CategoryIncome))
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{From: day(2025, 1, 1), To: day(2025, 1, 31)}
	assert.True(t, r.Contains(day(2025, 1, 1)))
	assert.True(t, r.Contains(day(2025, 1, 31)))
	assert.False(t, r.Contains(day(2025, 2, 1)))
	assert.True(t, DateRange{}.Contains(time.Now()))
}
