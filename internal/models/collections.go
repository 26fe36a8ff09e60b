package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionRow is an open installment as seen by the collections desk.
type CollectionRow struct {
	InstallmentID  string            `db:"installment_id" json:"installment_id"`
	DebtID         string            `db:"debt_id" json:"debt_id"`
	Amount         decimal.Decimal   `db:"amount" json:"amount"`
	AmountPaid     decimal.Decimal   `db:"amount_paid" json:"amount_paid"`
	DueDate        time.Time         `db:"due_date" json:"due_date"`
	Status         InstallmentStatus `db:"status" json:"status"`
	StudentID      string            `db:"student_id" json:"student_id"`
	StudentName    string            `db:"student_name" json:"student_name"`
	Identification *string           `db:"identification" json:"identification,omitempty"`
	Phone          *string           `db:"phone" json:"phone,omitempty"`
	MunicipalityID string            `db:"municipality_id" json:"municipality_id"`
	Municipality   string            `db:"municipality_name" json:"municipality_name"`
	DebtRemaining  decimal.Decimal   `db:"debt_remaining" json:"debt_remaining"`
	// Days is days late for overdue rows and days remaining for upcoming rows.
	Days            int    `db:"-" json:"days"`
	ReminderMessage string `db:"-" json:"reminder_message,omitempty"`
}

// CollectionFilter narrows overdue and upcoming listings.
type CollectionFilter struct {
	MunicipalityID string
	Search         string
	// Bucket is an aging range such as "0-30" or "90+".
	Bucket string
	Scope  Scope
}

// StudentBalance is a row of the clearance and scholarship listings.
type StudentBalance struct {
	StudentID      string          `db:"student_id" json:"student_id"`
	StudentName    string          `db:"student_name" json:"student_name"`
	Identification *string         `db:"identification" json:"identification,omitempty"`
	Program        Program         `db:"program" json:"program"`
	MunicipalityID string          `db:"municipality_id" json:"municipality_id"`
	Municipality   string          `db:"municipality_name" json:"municipality_name"`
	DebtTotal      decimal.Decimal `db:"debt_total" json:"debt_total"`
	DebtRemaining  decimal.Decimal `db:"debt_remaining" json:"debt_remaining"`
}

// MethodTotal is money collected through one payment method.
type MethodTotal struct {
	Method PaymentMethod   `db:"method" json:"method"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

// ReportFilter scopes the daily collection report.
type ReportFilter struct {
	Date           time.Time
	MunicipalityID string
	Program        *Program
	Scope          Scope
}

// DailyReport summarises collection on a date against the month.
type DailyReport struct {
	Date              time.Time       `json:"date"`
	CollectedOnDate   decimal.Decimal `json:"collected_on_date"`
	ByMethod          []MethodTotal   `json:"by_method"`
	MonthTarget       decimal.Decimal `json:"month_target"`
	CollectedInMonth  decimal.Decimal `json:"collected_in_month"`
	CompliancePercent decimal.Decimal `json:"compliance_percent"`
	PortfolioValue    decimal.Decimal `json:"portfolio_value"`
	CollectedToDate   decimal.Decimal `json:"collected_to_date"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// MonthlyFlow compares income and expenses for a month.
type MonthlyFlow struct {
	Month    int             `db:"month" json:"month"`
	Income   decimal.Decimal `db:"income" json:"income"`
	Expenses decimal.Decimal `db:"expenses" json:"expenses"`
	Net      decimal.Decimal `db:"-" json:"net"`
}

// MonthAmount is a per-month sum returned by aggregate queries.
type MonthAmount struct {
	Month  int             `db:"month"`
	Amount decimal.Decimal `db:"amount"`
}
