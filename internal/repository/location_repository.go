package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// LocationRepository persists the department > municipality > site > room tree.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs a LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// CreateDepartment inserts a department.
func (r *LocationRepository) CreateDepartment(ctx context.Context, d *models.Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO departments (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// ListDepartments returns every department ordered by name.
func (r *LocationRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments ORDER BY name ASC`
	var items []models.Department
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return items, nil
}

// FindDepartment loads a department.
func (r *LocationRepository) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments WHERE id = $1`
	var item models.Department
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateMunicipality inserts a municipality.
func (r *LocationRepository) CreateMunicipality(ctx context.Context, m *models.Municipality) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO municipalities (id, name, department_id, created_at) VALUES (:id, :name, :department_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create municipality: %w", err)
	}
	return nil
}

// ListMunicipalities lists municipalities, optionally of one department.
func (r *LocationRepository) ListMunicipalities(ctx context.Context, departmentID string) ([]models.Municipality, error) {
	query := `SELECT m.id, m.name, m.department_id, d.name AS department_name, m.created_at
FROM municipalities m JOIN departments d ON d.id = m.department_id`
	var args []interface{}
	if departmentID != "" {
		args = append(args, departmentID)
		query += " WHERE m.department_id = $1"
	}
	query += " ORDER BY m.name ASC"
	var items []models.Municipality
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	return items, nil
}

// FindMunicipality loads a municipality with its department name.
func (r *LocationRepository) FindMunicipality(ctx context.Context, id string) (*models.Municipality, error) {
	const query = `SELECT m.id, m.name, m.department_id, d.name AS department_name, m.created_at
FROM municipalities m JOIN departments d ON d.id = m.department_id WHERE m.id = $1`
	var item models.Municipality
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateSite inserts a site.
func (r *LocationRepository) CreateSite(ctx context.Context, s *models.Site) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO sites (id, name, address, municipality_id, created_at) VALUES (:id, :name, :address, :municipality_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

// ListSites lists sites, optionally of one municipality.
func (r *LocationRepository) ListSites(ctx context.Context, municipalityID string) ([]models.Site, error) {
	query := `SELECT s.id, s.name, s.address, s.municipality_id, m.name AS municipality_name, s.created_at
FROM sites s JOIN municipalities m ON m.id = s.municipality_id`
	var args []interface{}
	if municipalityID != "" {
		args = append(args, municipalityID)
		query += " WHERE s.municipality_id = $1"
	}
	query += " ORDER BY s.name ASC"
	var items []models.Site
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return items, nil
}

// FindSite loads a site.
func (r *LocationRepository) FindSite(ctx context.Context, id string) (*models.Site, error) {
	const query = `SELECT s.id, s.name, s.address, s.municipality_id, m.name AS municipality_name, s.created_at
FROM sites s JOIN municipalities m ON m.id = s.municipality_id WHERE s.id = $1`
	var item models.Site
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateRoom inserts a room.
func (r *LocationRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO rooms (id, site_id, number, capacity, created_at) VALUES (:id, :site_id, :number, :capacity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// ListRooms lists rooms, optionally of one site.
func (r *LocationRepository) ListRooms(ctx context.Context, siteID string) ([]models.Room, error) {
	query := `SELECT r.id, r.site_id, s.name AS site_name, r.number, r.capacity, r.created_at
FROM rooms r JOIN sites s ON s.id = r.site_id`
	var args []interface{}
	if siteID != "" {
		args = append(args, siteID)
		query += " WHERE r.site_id = $1"
	}
	query += " ORDER BY s.name ASC, r.number ASC"
	var items []models.Room
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return items, nil
}

// FindRoomLocation resolves a room up to its department.
func (r *LocationRepository) FindRoomLocation(ctx context.Context, roomID string) (*models.RoomLocation, error) {
	const query = `SELECT r.id AS room_id, s.id AS site_id, s.name AS site_name,
	m.id AS municipality_id, m.name AS municipality_name,
	d.id AS department_id, d.name AS department_name
FROM rooms r
JOIN sites s ON s.id = r.site_id
JOIN municipalities m ON m.id = s.municipality_id
JOIN departments d ON d.id = m.department_id
WHERE r.id = $1`
	var loc models.RoomLocation
	if err := r.db.GetContext(ctx, &loc, query, roomID); err != nil {
		return nil, err
	}
	return &loc, nil
}
