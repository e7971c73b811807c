// Package payroll computes employee and employer payroll taxes.
package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/shared"
)

// EmployeeClass selects the tax regime.
type EmployeeClass string

const (
	ClassState   EmployeeClass = "state"
	ClassPrivate EmployeeClass = "private"
)

var (
	// MinimumWage is the lowest gross salary accepted.
	MinimumWage = decimal.NewFromInt(400)

	// ErrBelowMinimumWage indicates gross salary under MinimumWage.
	ErrBelowMinimumWage = shared.NewValidationError("payroll: gross salary is below the minimum wage")
	// ErrUnknownClass indicates an unsupported employee class.
	ErrUnknownClass = shared.NewValidationError("payroll: employee class must be state or private")
)

var (
	hundred = decimal.NewFromInt(100)

	incomeAllowance   = decimal.NewFromInt(200)
	stateIncomeStep   = decimal.NewFromInt(2500)
	stateIncomeBase   = decimal.NewFromInt(350)
	healthThreshold   = decimal.NewFromInt(8000)
	privateSocialBase = decimal.NewFromInt(6)

	rate14  = decimal.RequireFromString("0.14")
	rate25  = decimal.RequireFromString("0.25")
	rate10  = decimal.RequireFromString("0.10")
	rate22  = decimal.RequireFromString("0.22")
	rate15  = decimal.RequireFromString("0.15")
	rate3   = decimal.RequireFromString("0.03")
	rate2   = decimal.RequireFromString("0.02")
	rate0_5 = decimal.RequireFromString("0.005")
)

// ParseEmployeeClass normalises a class name.
func ParseEmployeeClass(v string) (EmployeeClass, error) {
	switch EmployeeClass(strings.ToLower(strings.TrimSpace(v))) {
	case ClassState:
		return ClassState, nil
	case ClassPrivate:
		return ClassPrivate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownClass, v)
	}
}

// EmployeeTaxes are withheld from the gross salary.
type EmployeeTaxes struct {
	IncomeTax             decimal.Decimal `json:"incomeTax"`
	AdditionalIncomeTax   decimal.Decimal `json:"additionalIncomeTax"`
	SocialFund            decimal.Decimal `json:"socialFund"`
	UnemploymentInsurance decimal.Decimal `json:"unemploymentInsurance"`
	HealthInsurance       decimal.Decimal `json:"healthInsurance"`
}

// Total sums every withheld tax.
func (t EmployeeTaxes) Total() decimal.Decimal {
	return decimal.Sum(t.IncomeTax, t.AdditionalIncomeTax, t.SocialFund, t.UnemploymentInsurance, t.HealthInsurance)
}

// EmployerTaxes are paid on top of the gross salary.
type EmployerTaxes struct {
	SocialFund            decimal.Decimal `json:"socialFund"`
	UnemploymentInsurance decimal.Decimal `json:"unemploymentInsurance"`
	HealthInsurance       decimal.Decimal `json:"healthInsurance"`
}

// Total sums every employer contribution.
func (t EmployerTaxes) Total() decimal.Decimal {
	return decimal.Sum(t.SocialFund, t.UnemploymentInsurance, t.HealthInsurance)
}

// EmployeeSide is the employee view of a payslip.
type EmployeeSide struct {
	Taxes      EmployeeTaxes   `json:"taxes"`
	TotalTaxes decimal.Decimal `json:"totalTaxes"`
	NetSalary  decimal.Decimal `json:"netSalary"`
}

// EmployerSide is the employer view of a payslip.
type EmployerSide struct {
	EmployerTaxes  EmployerTaxes   `json:"employerTaxes"`
	TotalTaxes     decimal.Decimal `json:"totalTaxes"`
	TotalLaborCost decimal.Decimal `json:"totalLaborCost"`
}

// Summary condenses both sides.
type Summary struct {
	GrossSalary         decimal.Decimal `json:"grossSalary"`
	EmployeeClass       EmployeeClass   `json:"employeeClass"`
	NetSalary           decimal.Decimal `json:"netSalary"`
	TotalLaborCost      decimal.Decimal `json:"totalLaborCost"`
	TaxBurdenPercentage string          `json:"taxBurdenPercentage"`
}

// TaxResult is the full calculation for one salary.
type TaxResult struct {
	Employee EmployeeSide `json:"employee"`
	Employer EmployerSide `json:"employer"`
	Summary  Summary      `json:"summary"`
}

// CalculateAllTaxes itemises payroll taxes for gross under class. Every amount
// is rounded to 2 places before totals are taken.
func CalculateAllTaxes(gross decimal.Decimal, class EmployeeClass) (TaxResult, error) {
	if gross.LessThan(MinimumWage) {
		return TaxResult{}, fmt.Errorf("%w: %s < %s", ErrBelowMinimumWage, gross.String(), MinimumWage.String())
	}
	var (
		employee EmployeeTaxes
		employer EmployerTaxes
	)
	switch class {
	case ClassState:
		employee = stateEmployeeTaxes(gross)
		employer = stateEmployerTaxes(gross)
	case ClassPrivate:
		employee = privateEmployeeTaxes(gross)
		employer = privateEmployerTaxes(gross)
	default:
		return TaxResult{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	employeeTotal := employee.Total()
	employerTotal := employer.Total()
	net := gross.Sub(employeeTotal).Round(2)
	laborCost := gross.Add(employerTotal).Round(2)
	burden := employeeTotal.Add(employerTotal).Div(gross).Mul(hundred)

	return TaxResult{
		Employee: EmployeeSide{Taxes: employee, TotalTaxes: employeeTotal, NetSalary: net},
		Employer: EmployerSide{EmployerTaxes: employer, TotalTaxes: employerTotal, TotalLaborCost: laborCost},
		Summary: Summary{
			GrossSalary:         gross.Round(2),
			EmployeeClass:       class,
			NetSalary:           net,
			TotalLaborCost:      laborCost,
			TaxBurdenPercentage: burden.StringFixed(2),
		},
	}, nil
}

func stateEmployeeTaxes(s decimal.Decimal) EmployeeTaxes {
	var income decimal.Decimal
	if s.LessThanOrEqual(stateIncomeStep) {
		income = s.Sub(incomeAllowance).Mul(rate14)
	} else {
		income = s.Sub(stateIncomeStep).Mul(rate25).Add(stateIncomeBase)
	}
	return EmployeeTaxes{
		IncomeTax:             income.Round(2),
		AdditionalIncomeTax:   decimal.Zero,
		SocialFund:            s.Mul(rate3).Round(2),
		UnemploymentInsurance: s.Mul(rate0_5).Round(2),
		HealthInsurance:       healthInsurance(s),
	}
}

func stateEmployerTaxes(s decimal.Decimal) EmployerTaxes {
	return EmployerTaxes{
		SocialFund:            s.Mul(rate22).Round(2),
		UnemploymentInsurance: s.Mul(rate0_5).Round(2),
		HealthInsurance:       healthInsurance(s),
	}
}

// privateEmployeeTaxes levies the flat 14% on the whole salary and a further
// 14% on the part above the health threshold.
func privateEmployeeTaxes(s decimal.Decimal) EmployeeTaxes {
	additional := decimal.Zero
	if s.GreaterThan(healthThreshold) {
		additional = s.Sub(healthThreshold).Mul(rate14).Round(2)
	}
	return EmployeeTaxes{
		IncomeTax:             s.Mul(rate14).Round(2),
		AdditionalIncomeTax:   additional,
		SocialFund:            s.Sub(incomeAllowance).Mul(rate10).Add(privateSocialBase).Round(2),
		UnemploymentInsurance: s.Mul(rate0_5).Round(2),
		HealthInsurance:       healthInsurance(s),
	}
}

func privateEmployerTaxes(s decimal.Decimal) EmployerTaxes {
	first := decimal.Min(s, incomeAllowance)
	rest := decimal.Max(s.Sub(incomeAllowance), decimal.Zero)
	return EmployerTaxes{
		SocialFund:            first.Mul(rate22).Add(rest.Mul(rate15)).Round(2),
		UnemploymentInsurance: s.Mul(rate0_5).Round(2),
		HealthInsurance:       healthInsurance(s),
	}
}

// healthInsurance is 2% up to the threshold and 0.5% above it, on the whole salary.
func healthInsurance(s decimal.Decimal) decimal.Decimal {
	if s.LessThanOrEqual(healthThreshold) {
		return s.Mul(rate2).Round(2)
	}
	return s.Mul(rate0_5).Round(2)
}
