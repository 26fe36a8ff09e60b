package dto

import (
	"github.com/shopspring/decimal"
)

// DepartmentRequest creates a department.
type DepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// MunicipalityRequest creates a municipality.
type MunicipalityRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	DepartmentID string `json:"department_id" validate:"required"`
}

// SiteRequest creates a site.
type SiteRequest struct {
	Name           string  `json:"name" validate:"required,max=100"`
	Address        *string `json:"address" validate:"omitempty,max=200"`
	MunicipalityID string  `json:"municipality_id" validate:"required"`
}

// RoomRequest creates a room.
type RoomRequest struct {
	SiteID   string `json:"site_id" validate:"required"`
	Number   int    `json:"number" validate:"required,min=1"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

// GroupRequest creates a group. The code is generated when omitted.
type GroupRequest struct {
	RoomID string `json:"room_id" validate:"required"`
	Code   string `json:"code" validate:"omitempty,max=20"`
}

// GroupQuery filters the group listing.
type GroupQuery struct {
	MunicipalityID string `form:"municipality_id"`
	SiteID         string `form:"site_id"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// StudentRequest creates or updates a student. Total opens the tuition debt
// together with the student when it is positive.
type StudentRequest struct {
	FirstNames         string           `json:"first_names" validate:"required,max=100"`
	FirstSurname       string           `json:"first_surname" validate:"required,max=60"`
	SecondSurname      *string          `json:"second_surname" validate:"omitempty,max=60"`
	IdentificationType string           `json:"identification_type" validate:"required,oneof=TI CC CE"`
	Identification     *string          `json:"identification" validate:"omitempty,max=20"`
	BirthDate          *string          `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Phone              *string          `json:"phone" validate:"omitempty,max=20"`
	Email              *string          `json:"email" validate:"omitempty,email"`
	GuardianName       *string          `json:"guardian_name" validate:"omitempty,max=100"`
	GuardianPhone      *string          `json:"guardian_phone" validate:"omitempty,max=20"`
	Program            string           `json:"program" validate:"required,oneof=preicfes preuniversity validation"`
	Scholarship        bool             `json:"scholarship"`
	EnrollmentDate     string           `json:"enrollment_date" validate:"required,datetime=2006-01-02"`
	CompletionDate     *string          `json:"completion_date" validate:"omitempty,datetime=2006-01-02"`
	MunicipalityID     string           `json:"municipality_id" validate:"required"`
	GroupID            *string          `json:"group_id"`
	DebtTotal          *decimal.Decimal `json:"debt_total"`
}

// StudentQuery filters the student listing.
type StudentQuery struct {
	Search         string `form:"search"`
	Status         string `form:"status" validate:"omitempty,oneof=active withdrawn"`
	Program        string `form:"program" validate:"omitempty,oneof=preicfes preuniversity validation"`
	Scholarship    *bool  `form:"scholarship"`
	MunicipalityID string `form:"municipality_id"`
	GroupID        string `form:"group_id"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
	SortBy         string `form:"sort_by"`
	SortOrder      string `form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// ClassRequest creates or updates a class session.
type ClassRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot    string  `json:"time_slot" validate:"required"`
	RoomID      string  `json:"room_id" validate:"required"`
	GroupID     string  `json:"group_id" validate:"required"`
	Subject     string  `json:"subject" validate:"required,max=100"`
	ProfessorID *string `json:"professor_id"`
}

// ClassQuery filters the class listing.
type ClassQuery struct {
	ProfessorID string `form:"professor_id"`
	GroupID     string `form:"group_id"`
	Status      string `form:"status" validate:"omitempty,oneof=scheduled taught cancelled"`
	DateFrom    string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo      string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// AttendanceEntry is the attendance and optional grade of one student.
type AttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Attended  bool             `json:"attended"`
	Grade     *decimal.Decimal `json:"grade"`
}

// AttendanceRequest registers a class roster in one go.
type AttendanceRequest struct {
	Entries    []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
	MarkTaught bool              `json:"mark_taught"`
}

// AbsenceRequest records why a student missed a class.
type AbsenceRequest struct {
	ClassID   string  `json:"class_id" validate:"required"`
	StudentID string  `json:"student_id" validate:"required"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
	Justified bool    `json:"justified"`
}
