package models

import "time"

// WithdrawnGroupCode names the per-municipality group that holds withdrawn students.
const WithdrawnGroupCode = "RETIRADOS"

// Group is a cohort of students meeting in a room.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	RoomID    string    `db:"room_id" json:"room_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupDetail carries the location chain of a group.
type GroupDetail struct {
	Group
	RoomNumber       int    `db:"room_number" json:"room_number"`
	SiteID           string `db:"site_id" json:"site_id"`
	SiteName         string `db:"site_name" json:"site_name"`
	MunicipalityID   string `db:"municipality_id" json:"municipality_id"`
	MunicipalityName string `db:"municipality_name" json:"municipality_name"`
	DepartmentID     string `db:"department_id" json:"department_id"`
	DepartmentName   string `db:"department_name" json:"department_name"`
	StudentCount     int    `db:"student_count" json:"student_count"`
}

// RoomLocation resolves a room up to its department, used for group codes.
type RoomLocation struct {
	RoomID           string `db:"room_id"`
	SiteID           string `db:"site_id"`
	SiteName         string `db:"site_name"`
	MunicipalityID   string `db:"municipality_id"`
	MunicipalityName string `db:"municipality_name"`
	DepartmentID     string `db:"department_id"`
	DepartmentName   string `db:"department_name"`
}

// GroupFilter captures list filters.
type GroupFilter struct {
	MunicipalityID string
	SiteID         string
	Scope          Scope
	Page           int
	PageSize       int
}
