package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// CreateExpenseRequest records an operating cost of a site. The municipality
// defaults to the site's.
type CreateExpenseRequest struct {
	SiteID         string          `json:"site_id" validate:"required"`
	MunicipalityID string          `json:"municipality_id"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	Concept        string          `json:"concept" validate:"required,max=200"`
	Contractor     *string         `json:"contractor" validate:"omitempty,max=200"`
	Amount         decimal.Decimal `json:"amount"`
}

// ExpenseQuery filters the expense listing.
type ExpenseQuery struct {
	MunicipalityID string `form:"municipality_id"`
	SiteID         string `form:"site_id"`
	Status         string `form:"status" validate:"omitempty,oneof=published paid"`
	DateFrom       string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo         string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// CollectionTargetRequest sets the collection goal of a month.
type CollectionTargetRequest struct {
	Year   int             `json:"year" validate:"required,min=2000,max=2100"`
	Month  int             `json:"month" validate:"required,min=1,max=12"`
	Amount decimal.Decimal `json:"amount"`
}

// ClassRateRequest creates a professor pay rate.
type ClassRateRequest struct {
	Name     string           `json:"name" validate:"required,max=100"`
	DayType  models.DayType   `json:"day_type" validate:"required,oneof=weekday saturday sunday"`
	TimeSlot *models.TimeSlot `json:"time_slot"`
	Amount   decimal.Decimal  `json:"amount"`
	Active   bool             `json:"active"`
}

// ResolveRateQuery asks which rate applies to a class.
type ResolveRateQuery struct {
	Date     string `form:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot string `form:"time_slot"`
}
