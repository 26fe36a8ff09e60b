package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type locationRepository interface {
	CreateDepartment(ctx context.Context, d *models.Department) error
	ListDepartments(ctx context.Context) ([]models.Department, error)
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
	CreateMunicipality(ctx context.Context, m *models.Municipality) error
	ListMunicipalities(ctx context.Context, departmentID string) ([]models.Municipality, error)
	FindMunicipality(ctx context.Context, id string) (*models.Municipality, error)
	CreateSite(ctx context.Context, s *models.Site) error
	ListSites(ctx context.Context, municipalityID string) ([]models.Site, error)
	FindSite(ctx context.Context, id string) (*models.Site, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	ListRooms(ctx context.Context, siteID string) ([]models.Room, error)
	FindRoomLocation(ctx context.Context, roomID string) (*models.RoomLocation, error)
}

type groupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	CountByPrefix(ctx context.Context, prefix string) (int, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, int, error)
}

// LocationService manages the location tree and the groups that live in its rooms.
type LocationService struct {
	repo      locationRepository
	groups    groupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLocationService constructs a LocationService.
func NewLocationService(repo locationRepository, groups groupRepository, validate *validator.Validate, logger *zap.Logger) *LocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{repo: repo, groups: groups, validator: validate, logger: logger}
}

// CreateDepartment adds a department.
func (s *LocationService) CreateDepartment(ctx context.Context, req dto.DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid department payload")
	}
	department := &models.Department{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, internalError(err, "failed to create department")
	}
	return department, nil
}

// ListDepartments returns every department.
func (s *LocationService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	items, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list departments")
	}
	return items, nil
}

// CreateMunicipality adds a municipality to a department.
func (s *LocationService) CreateMunicipality(ctx context.Context, req dto.MunicipalityRequest) (*models.Municipality, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid municipality payload")
	}
	department, err := s.repo.FindDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, lookupError(err, "department not found", "failed to load department")
	}
	municipality := &models.Municipality{Name: strings.TrimSpace(req.Name), DepartmentID: department.ID, DepartmentName: department.Name}
	if err := s.repo.CreateMunicipality(ctx, municipality); err != nil {
		return nil, internalError(err, "failed to create municipality")
	}
	return municipality, nil
}

// ListMunicipalities returns municipalities, optionally of one department.
func (s *LocationService) ListMunicipalities(ctx context.Context, departmentID string) ([]models.Municipality, error) {
	items, err := s.repo.ListMunicipalities(ctx, departmentID)
	if err != nil {
		return nil, internalError(err, "failed to list municipalities")
	}
	return items, nil
}

// CreateSite adds a site to a municipality.
func (s *LocationService) CreateSite(ctx context.Context, req dto.SiteRequest) (*models.Site, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid site payload")
	}
	municipality, err := s.repo.FindMunicipality(ctx, req.MunicipalityID)
	if err != nil {
		return nil, lookupError(err, "municipality not found", "failed to load municipality")
	}
	site := &models.Site{Name: strings.TrimSpace(req.Name), Address: req.Address, MunicipalityID: municipality.ID, MunicipalityName: municipality.Name}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return nil, internalError(err, "failed to create site")
	}
	return site, nil
}

// ListSites returns sites, optionally of one municipality.
func (s *LocationService) ListSites(ctx context.Context, municipalityID string) ([]models.Site, error) {
	items, err := s.repo.ListSites(ctx, municipalityID)
	if err != nil {
		return nil, internalError(err, "failed to list sites")
	}
	return items, nil
}

// CreateRoom adds a room to a site.
func (s *LocationService) CreateRoom(ctx context.Context, req dto.RoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room payload")
	}
	site, err := s.repo.FindSite(ctx, req.SiteID)
	if err != nil {
		return nil, lookupError(err, "site not found", "failed to load site")
	}
	room := &models.Room{SiteID: site.ID, SiteName: site.Name, Number: req.Number, Capacity: req.Capacity}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, internalError(err, "failed to create room")
	}
	return room, nil
}

// ListRooms returns rooms, optionally of one site.
func (s *LocationService) ListRooms(ctx context.Context, siteID string) ([]models.Room, error) {
	items, err := s.repo.ListRooms(ctx, siteID)
	if err != nil {
		return nil, internalError(err, "failed to list rooms")
	}
	return items, nil
}

// CreateGroup adds a group to a room. Without an explicit code the group is
// named after its department, municipality and site plus a two digit sequence.
func (s *LocationService) CreateGroup(ctx context.Context, req dto.GroupRequest, actor Capabilities) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid group payload")
	}
	loc, err := s.repo.FindRoomLocation(ctx, req.RoomID)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	if !actor.Scope.Allows(loc.MunicipalityID, loc.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "room is outside your scope")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		code, err = s.nextGroupCode(ctx, loc)
		if err != nil {
			return nil, err
		}
	} else {
		exists, err := s.groups.ExistsByCode(ctx, code)
		if err != nil {
			return nil, internalError(err, "failed to check group code")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "group code already in use")
		}
	}

	group := &models.Group{Code: code, RoomID: loc.RoomID}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, internalError(err, "failed to create group")
	}
	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("code", code))
	return &models.GroupDetail{
		Group:            *group,
		SiteID:           loc.SiteID,
		SiteName:         loc.SiteName,
		MunicipalityID:   loc.MunicipalityID,
		MunicipalityName: loc.MunicipalityName,
		DepartmentID:     loc.DepartmentID,
		DepartmentName:   loc.DepartmentName,
	}, nil
}

func (s *LocationService) nextGroupCode(ctx context.Context, loc *models.RoomLocation) (string, error) {
	prefix := codePart(loc.DepartmentName) + codePart(loc.MunicipalityName) + codePart(loc.SiteName)
	count, err := s.groups.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", internalError(err, "failed to count groups")
	}
	for seq := count + 1; seq < 100; seq++ {
		code := fmt.Sprintf("%s%02d", prefix, seq)
		exists, err := s.groups.ExistsByCode(ctx, code)
		if err != nil {
			return "", internalError(err, "failed to check group code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "no group codes left for "+prefix)
}

// GetGroup returns a group with its location chain.
func (s *LocationService) GetGroup(ctx context.Context, id string, actor Capabilities) (*models.GroupDetail, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "group not found", "failed to load group")
	}
	if !actor.Scope.Allows(group.MunicipalityID, group.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "group is outside your scope")
	}
	return group, nil
}

// ListGroups returns the groups visible to the actor.
func (s *LocationService) ListGroups(ctx context.Context, query dto.GroupQuery, actor Capabilities) ([]models.GroupDetail, *models.Pagination, error) {
	filter := models.GroupFilter{
		MunicipalityID: query.MunicipalityID,
		SiteID:         query.SiteID,
		Scope:          actor.Scope,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	items, total, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list groups")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// codePart returns the first three letters of name, upper case and without
// accents, padded with X when the name is shorter.
func codePart(name string) string {
	plain, _, err := transform.String(stripMarks, name)
	if err != nil {
		plain = name
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(plain) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}
