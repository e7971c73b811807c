package payments

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/export"
)

// ScheduleWindow is the look-ahead of the payment schedule.
const ScheduleWindow = 7 * 24 * time.Hour

// ScheduleItem is one payment in the schedule.
type ScheduleItem struct {
	Payment
	Urgent bool `json:"urgent"`
}

// Schedule lists payments falling due soon.
type Schedule struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Items []ScheduleItem  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// BuildSchedule keeps payments due within [now, now+ScheduleWindow], ordered
// by due date with ties in input order. Urgent marks items due before now.
func BuildSchedule(payments []Payment, now time.Time) Schedule {
	now = now.UTC()
	end := now.Add(ScheduleWindow)
	out := Schedule{From: now, To: end, Items: []ScheduleItem{}, Total: decimal.Zero}
	for _, p := range payments {
		due := p.DueDate.UTC()
		if due.Before(now) || due.After(end) {
			continue
		}
		out.Items = append(out.Items, ScheduleItem{Payment: p, Urgent: due.Before(now)})
		out.Total = out.Total.Add(p.Amount)
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].DueDate.Before(out.Items[j].DueDate)
	})
	return out
}

// Table flattens the schedule for export.
func (s Schedule) Table() export.Table {
	table := export.Table{
		Title:   "Payment Schedule",
		Columns: []string{"Due date", "Kind", "Counterparty", "Description", "Amount", "Status", "Urgent"},
	}
	for _, item := range s.Items {
		table.Rows = append(table.Rows, []any{item.DueDate, string(item.Kind), item.Counterparty, item.Description, item.Amount, string(item.Status), item.Urgent})
	}
	table.Rows = append(table.Rows, []any{"Total", "", "", "", s.Total, "", ""})
	return table
}
