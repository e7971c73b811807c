package reports

import (
	"fmt"
	"strings"

	"github.com/nummix/backoffice/internal/shared"
)

// Kind selects one of the period reports.
type Kind string

const (
	KindDashboard        Kind = "dashboard"
	KindTotalAssets      Kind = "total-assets"
	KindBalanceBreakdown Kind = "balance-breakdown"
	KindGeneralLedger    Kind = "general-ledger"
	KindMonthlyTrend     Kind = "monthly-trend"
	KindTrialBalance     Kind = "trial-balance"
)

// Kinds lists every report kind.
var Kinds = []Kind{KindDashboard, KindTotalAssets, KindBalanceBreakdown, KindGeneralLedger, KindMonthlyTrend, KindTrialBalance}

// ErrUnknownKind indicates an unsupported report name.
var ErrUnknownKind = shared.NewNotFoundError("reports: unknown report kind")

// ParseKind resolves a report name from a URL segment.
func ParseKind(v string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, v)
}
