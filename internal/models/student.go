package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StudentStatus enumerates enrollment states.
type StudentStatus string

const (
	StudentActive    StudentStatus = "active"
	StudentWithdrawn StudentStatus = "withdrawn"
)

// IdentificationType enumerates Colombian identity documents.
type IdentificationType string

const (
	IdentificationTI IdentificationType = "TI"
	IdentificationCC IdentificationType = "CC"
	IdentificationCE IdentificationType = "CE"
)

// Program is the course a student is enrolled in.
type Program string

const (
	ProgramPreICFES      Program = "preicfes"
	ProgramPreUniversity Program = "preuniversity"
	ProgramValidation    Program = "validation"
)

// Student is an enrolled learner.
type Student struct {
	ID                 string             `db:"id" json:"id"`
	FirstNames         string             `db:"first_names" json:"first_names"`
	FirstSurname       string             `db:"first_surname" json:"first_surname"`
	SecondSurname      *string            `db:"second_surname" json:"second_surname,omitempty"`
	IdentificationType IdentificationType `db:"identification_type" json:"identification_type"`
	Identification     *string            `db:"identification" json:"identification,omitempty"`
	BirthDate          *time.Time         `db:"birth_date" json:"birth_date,omitempty"`
	Phone              *string            `db:"phone" json:"phone,omitempty"`
	Email              *string            `db:"email" json:"email,omitempty"`
	GuardianName       *string            `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone      *string            `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Program            Program            `db:"program" json:"program"`
	Scholarship        bool               `db:"scholarship" json:"scholarship"`
	EnrollmentDate     time.Time          `db:"enrollment_date" json:"enrollment_date"`
	CompletionDate     *time.Time         `db:"completion_date" json:"completion_date,omitempty"`
	Status             StudentStatus      `db:"status" json:"status"`
	WithdrawalDate     *time.Time         `db:"withdrawal_date" json:"withdrawal_date,omitempty"`
	MunicipalityID     string             `db:"municipality_id" json:"municipality_id"`
	GroupID            *string            `db:"group_id" json:"group_id,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// FullName joins names and surnames the way they are printed on documents.
func (s Student) FullName() string {
	parts := []string{s.FirstNames, s.FirstSurname}
	if s.SecondSurname != nil && *s.SecondSurname != "" {
		parts = append(parts, *s.SecondSurname)
	}
	return strings.Join(parts, " ")
}

// StudentDetail enriches a student with location, group and debt summary.
type StudentDetail struct {
	Student
	MunicipalityName string           `db:"municipality_name" json:"municipality_name"`
	DepartmentID     string           `db:"department_id" json:"department_id"`
	DepartmentName   string           `db:"department_name" json:"department_name"`
	GroupCode        *string          `db:"group_code" json:"group_code,omitempty"`
	DebtID           *string          `db:"debt_id" json:"debt_id,omitempty"`
	DebtTotal        *decimal.Decimal `db:"debt_total" json:"debt_total,omitempty"`
	DebtRemaining    *decimal.Decimal `db:"debt_remaining" json:"debt_remaining,omitempty"`
	DebtStatus       *DebtStatus      `db:"debt_status" json:"debt_status,omitempty"`
}

// StudentFilter captures list filters.
type StudentFilter struct {
	Search         string
	Status         *StudentStatus
	Program        *Program
	Scholarship    *bool
	MunicipalityID string
	GroupID        string
	Scope          Scope
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
