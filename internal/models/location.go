package models

import "time"

// Department is the top level of the location tree.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Municipality belongs to a department.
type Municipality struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	DepartmentID   string    `db:"department_id" json:"department_id"`
	DepartmentName string    `db:"department_name" json:"department_name,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Site is a campus inside a municipality.
type Site struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Address          *string   `db:"address" json:"address,omitempty"`
	MunicipalityID   string    `db:"municipality_id" json:"municipality_id"`
	MunicipalityName string    `db:"municipality_name" json:"municipality_name,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Room is a classroom inside a site.
type Room struct {
	ID        string    `db:"id" json:"id"`
	SiteID    string    `db:"site_id" json:"site_id"`
	SiteName  string    `db:"site_name" json:"site_name,omitempty"`
	Number    int       `db:"number" json:"number"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
