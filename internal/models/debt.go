package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtStatus is derived from the installments of a debt.
type DebtStatus string

const (
	DebtIssued DebtStatus = "issued"
	DebtPaid   DebtStatus = "paid"
)

// Debt is the tuition balance of one student.
type Debt struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	Total       decimal.Decimal `db:"total" json:"total"`
	Remaining   decimal.Decimal `db:"remaining" json:"remaining"`
	Status      DebtStatus      `db:"status" json:"status"`
	EditEnabled bool            `db:"edit_enabled" json:"edit_enabled"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// DebtDetail is a debt with its student and installments.
type DebtDetail struct {
	Debt
	StudentName    string        `json:"student_name"`
	MunicipalityID string        `json:"municipality_id"`
	DepartmentID   string        `json:"department_id"`
	Installments   []Installment `json:"installments"`
}

// DebtOwner locates the student owning a debt; it drives scope checks.
type DebtOwner struct {
	DebtID         string     `db:"debt_id"`
	StudentID      string     `db:"student_id"`
	StudentName    string     `db:"student_name"`
	Identification *string    `db:"identification"`
	EnrollmentDate time.Time  `db:"enrollment_date"`
	CompletionDate *time.Time `db:"completion_date"`
	MunicipalityID string     `db:"municipality_id"`
	DepartmentID   string     `db:"department_id"`
}

// DebtModification is an audit row for manual ledger changes.
type DebtModification struct {
	ID          string    `db:"id" json:"id"`
	DebtID      string    `db:"debt_id" json:"debt_id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Username    *string   `db:"username" json:"username,omitempty"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
