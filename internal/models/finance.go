package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus tracks whether an expense was settled.
type ExpenseStatus string

const (
	ExpensePublished ExpenseStatus = "published"
	ExpensePaid      ExpenseStatus = "paid"
)

// Expense is an operating cost of a site.
type Expense struct {
	ID             string          `db:"id" json:"id"`
	SiteID         string          `db:"site_id" json:"site_id"`
	MunicipalityID string          `db:"municipality_id" json:"municipality_id"`
	Date           time.Time       `db:"date" json:"date"`
	Concept        string          `db:"concept" json:"concept"`
	Contractor     *string         `db:"contractor" json:"contractor,omitempty"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Status         ExpenseStatus   `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// ExpenseFilter captures list filters.
type ExpenseFilter struct {
	MunicipalityID string
	SiteID         string
	Status         *ExpenseStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	Scope          Scope
	Page           int
	PageSize       int
}

// CollectionTarget is the amount expected to be collected in a month.
type CollectionTarget struct {
	ID        string          `db:"id" json:"id"`
	Year      int             `db:"year" json:"year"`
	Month     int             `db:"month" json:"month"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// DayType buckets dates for class rates.
type DayType string

const (
	DayWeekday  DayType = "weekday"
	DaySaturday DayType = "saturday"
	DaySunday   DayType = "sunday"
)

// DayTypeOf classifies a date.
func DayTypeOf(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday:
		return DaySaturday
	case time.Sunday:
		return DaySunday
	default:
		return DayWeekday
	}
}

// ClassRate is what a professor is paid per class.
type ClassRate struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	DayType   DayType         `db:"day_type" json:"day_type"`
	TimeSlot  *TimeSlot       `db:"time_slot" json:"time_slot,omitempty"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
