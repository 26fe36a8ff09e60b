package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

const groupDetailQuery = `SELECT g.id, g.code, g.room_id, g.created_at,
	r.number AS room_number, s.id AS site_id, s.name AS site_name,
	m.id AS municipality_id, m.name AS municipality_name,
	d.id AS department_id, d.name AS department_name,
	(SELECT COUNT(*) FROM students st WHERE st.group_id = g.id AND st.status = 'active') AS student_count
FROM student_groups g
JOIN rooms r ON r.id = g.room_id
JOIN sites s ON s.id = r.site_id
JOIN municipalities m ON m.id = s.municipality_id
JOIN departments d ON d.id = m.department_id`

// GroupRepository persists student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO student_groups (id, code, room_id, created_at) VALUES (:id, :code, :room_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// FindByID returns the group with its location chain.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	var detail models.GroupDetail
	if err := r.db.GetContext(ctx, &detail, groupDetailQuery+" WHERE g.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByCode returns a group by code inside a municipality.
func (r *GroupRepository) FindByCode(ctx context.Context, municipalityID, code string) (*models.GroupDetail, error) {
	var detail models.GroupDetail
	if err := r.db.GetContext(ctx, &detail, groupDetailQuery+" WHERE m.id = $1 AND UPPER(g.code) = UPPER($2) LIMIT 1", municipalityID, code); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountByPrefix counts groups whose code starts with prefix; it feeds the code sequence.
func (r *GroupRepository) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COUNT(*) FROM student_groups WHERE code LIKE $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, prefix+"%"); err != nil {
		return 0, fmt.Errorf("count groups by prefix: %w", err)
	}
	return count, nil
}

// ExistsByCode reports whether the code is already used.
func (r *GroupRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM student_groups WHERE UPPER(code) = UPPER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check group code: %w", err)
	}
	return exists, nil
}

// List returns groups visible in scope.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, int, error) {
	var args []interface{}
	var conditions []string
	if cond, scoped := scopeCondition(filter.Scope, "m.id", "d.id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if filter.MunicipalityID != "" {
		args = append(args, filter.MunicipalityID)
		conditions = append(conditions, fmt.Sprintf("m.id = $%d", len(args)))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		conditions = append(conditions, fmt.Sprintf("s.id = $%d", len(args)))
	}
	where := whereClause(conditions)
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s WHERE %s ORDER BY g.code ASC LIMIT %d OFFSET %d", groupDetailQuery, where, size, offset)
	var items []models.GroupDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM student_groups g
JOIN rooms r ON r.id = g.room_id
JOIN sites s ON s.id = r.site_id
JOIN municipalities m ON m.id = s.municipality_id
JOIN departments d ON d.id = m.department_id
WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}
	return items, total, nil
}
