package dto

import "github.com/noah-isme/preicfes-api/internal/models"

// CollectionQuery filters the overdue and upcoming listings. Range is an aging
// bucket for overdue rows and a window for upcoming rows.
type CollectionQuery struct {
	MunicipalityID string `form:"municipality_id"`
	Search         string `form:"search"`
	Range          string `form:"range"`
}

// Filter converts the query into a repository filter.
func (q CollectionQuery) Filter() models.CollectionFilter {
	return models.CollectionFilter{MunicipalityID: q.MunicipalityID, Search: q.Search, Bucket: q.Range}
}

// DailyReportQuery selects the daily collection report.
type DailyReportQuery struct {
	Date           string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	MunicipalityID string `form:"municipality_id"`
	Program        string `form:"program" validate:"omitempty,oneof=preicfes preuniversity validation"`
}

// IncomeExpensesQuery selects the monthly income and expenses comparison.
type IncomeExpensesQuery struct {
	Year           int    `form:"year" validate:"required,min=2000,max=2100"`
	MunicipalityID string `form:"municipality_id"`
}

// AgreementQuery filters payment agreements.
type AgreementQuery struct {
	MunicipalityID string `form:"municipality_id"`
	DepartmentID   string `form:"department_id"`
	Status         string `form:"status" validate:"omitempty,oneof=issued fulfilled broken"`
	MaxDays        *int   `form:"max_days" validate:"omitempty,min=0"`
}

// Filter converts the query into a repository filter.
func (q AgreementQuery) Filter() models.AgreementFilter {
	filter := models.AgreementFilter{
		MunicipalityID:   q.MunicipalityID,
		DepartmentID:     q.DepartmentID,
		MaxDaysRemaining: q.MaxDays,
	}
	if q.Status != "" {
		status := models.AgreementStatus(q.Status)
		filter.Status = &status
	}
	return filter
}

// SweepResult reports the outcome of the overdue maintenance.
type SweepResult struct {
	Pending int   `json:"pending"`
	Marked  int64 `json:"marked"`
}
