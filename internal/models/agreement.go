package models

import "time"

// AgreementStatus tracks a promise to pay.
type AgreementStatus string

const (
	AgreementIssued    AgreementStatus = "issued"
	AgreementFulfilled AgreementStatus = "fulfilled"
	AgreementBroken    AgreementStatus = "broken"
)

// PaymentAgreement is a promise to pay an installment by a date.
type PaymentAgreement struct {
	ID            string          `db:"id" json:"id"`
	InstallmentID string          `db:"installment_id" json:"installment_id"`
	AgreementDate time.Time       `db:"agreement_date" json:"agreement_date"`
	PromisedDate  time.Time       `db:"promised_date" json:"promised_date"`
	Note          *string         `db:"note" json:"note,omitempty"`
	Status        AgreementStatus `db:"status" json:"status"`
	CreatedBy     *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// AgreementDetail joins an agreement with its installment and student.
type AgreementDetail struct {
	PaymentAgreement
	InstallmentStatus InstallmentStatus `db:"installment_status" json:"installment_status"`
	InstallmentDue    time.Time         `db:"installment_due" json:"installment_due"`
	StudentID         string            `db:"student_id" json:"student_id"`
	StudentName       string            `db:"student_name" json:"student_name"`
	Phone             *string           `db:"phone" json:"phone,omitempty"`
	MunicipalityID    string            `db:"municipality_id" json:"municipality_id"`
	DepartmentID      string            `db:"department_id" json:"department_id"`
	DaysRemaining     int               `db:"-" json:"days_remaining"`
}

// AgreementFilter captures list filters.
type AgreementFilter struct {
	MunicipalityID string
	DepartmentID   string
	Status         *AgreementStatus
	// MaxDaysRemaining keeps agreements whose promised date is at most N days away.
	MaxDaysRemaining *int
	Scope            Scope
}
