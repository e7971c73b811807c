package payroll

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/shared"
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

func TestStateEmployeeAt2000(t *testing.T) {
	res, err := CalculateAllTaxes(dec("2000"), ClassState)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	taxes := res.Employee.Taxes
	expectDecimal(t, "income tax", "252", taxes.IncomeTax)
	expectDecimal(t, "social fund", "60", taxes.SocialFund)
	expectDecimal(t, "unemployment", "10", taxes.UnemploymentInsurance)
	expectDecimal(t, "health", "40", taxes.HealthInsurance)
	expectDecimal(t, "total", "362", res.Employee.TotalTaxes)
	expectDecimal(t, "net", "1638", res.Employee.NetSalary)

	expectDecimal(t, "employer social", "440", res.Employer.EmployerTaxes.SocialFund)
	expectDecimal(t, "employer total", "490", res.Employer.TotalTaxes)
	expectDecimal(t, "labor cost", "2490", res.Employer.TotalLaborCost)
	if res.Summary.TaxBurdenPercentage != "42.60" {
		t.Fatalf("expected burden 42.60 got %s", res.Summary.TaxBurdenPercentage)
	}
}

func TestStateEmployeeUpperBracket(t *testing.T) {
	res, err := CalculateAllTaxes(dec("3000"), ClassState)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	expectDecimal(t, "income tax", "475", res.Employee.Taxes.IncomeTax)

	res, err = CalculateAllTaxes(dec("10000"), ClassState)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	expectDecimal(t, "health above threshold", "50", res.Employee.Taxes.HealthInsurance)
	expectDecimal(t, "employer health above threshold", "50", res.Employer.EmployerTaxes.HealthInsurance)
}

func TestPrivateEmployeeAtMinimumWage(t *testing.T) {
	res, err := CalculateAllTaxes(dec("400"), ClassPrivate)
	if err != nil {
		t.Fatalf("400 must be accepted: %v", err)
	}
	taxes := res.Employee.Taxes
	expectDecimal(t, "income tax", "56", taxes.IncomeTax)
	expectDecimal(t, "additional", "0", taxes.AdditionalIncomeTax)
	expectDecimal(t, "social fund", "26", taxes.SocialFund)
	expectDecimal(t, "total", "92", res.Employee.TotalTaxes)
	expectDecimal(t, "net", "308", res.Employee.NetSalary)
	expectDecimal(t, "employer social", "74", res.Employer.EmployerTaxes.SocialFund)
	expectDecimal(t, "employer total", "84", res.Employer.TotalTaxes)
}

func TestPrivateEmployeeAboveThresholdPaysBothLevies(t *testing.T) {
	res, err := CalculateAllTaxes(dec("10000"), ClassPrivate)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	taxes := res.Employee.Taxes
	expectDecimal(t, "flat income tax", "1400", taxes.IncomeTax)
	expectDecimal(t, "additional", "280", taxes.AdditionalIncomeTax)
	expectDecimal(t, "social fund", "986", taxes.SocialFund)
	expectDecimal(t, "health", "50", taxes.HealthInsurance)
	expectDecimal(t, "net", "7234", res.Employee.NetSalary)
}

func TestRoundsEveryAmount(t *testing.T) {
	res, err := CalculateAllTaxes(dec("1234.57"), ClassState)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// (1234.57-200)*0.14 = 144.8398
	expectDecimal(t, "income tax", "144.84", res.Employee.Taxes.IncomeTax)
	// 1234.57*0.005 = 6.17285
	expectDecimal(t, "unemployment", "6.17", res.Employee.Taxes.UnemploymentInsurance)
}

func TestBelowMinimumWage(t *testing.T) {
	_, err := CalculateAllTaxes(dec("399"), ClassPrivate)
	if !errors.Is(err, ErrBelowMinimumWage) {
		t.Fatalf("expected ErrBelowMinimumWage got %v", err)
	}
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected validation category got %v", err)
	}
}

func TestUnknownClass(t *testing.T) {
	if _, err := CalculateAllTaxes(dec("1000"), "contractor"); !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass got %v", err)
	}
	if class, err := ParseEmployeeClass(" State "); err != nil || class != ClassState {
		t.Fatalf("unexpected parse %s %v", class, err)
	}
}
