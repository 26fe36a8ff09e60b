package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// pageBounds normalises paging input: page from 1, size 20 by default and at most 100.
func pageBounds(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}

// scopeCondition returns the SQL predicate restricting rows to scope. The
// returned predicate is empty when the scope sees everything.
func scopeCondition(scope models.Scope, municipalityCol, departmentCol string, args []interface{}) (string, []interface{}) {
	switch scope.Kind {
	case models.ScopeAll:
		return "", args
	case models.ScopeDepartment:
		if scope.DepartmentID == "" {
			return "1=0", args
		}
		args = append(args, scope.DepartmentID)
		return fmt.Sprintf("%s = $%d", departmentCol, len(args)), args
	case models.ScopeMunicipality:
		if scope.MunicipalityID == "" {
			return "1=0", args
		}
		args = append(args, scope.MunicipalityID)
		return fmt.Sprintf("%s = $%d", municipalityCol, len(args)), args
	default:
		return "1=0", args
	}
}

// whereClause joins conditions, always yielding a valid WHERE body.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return "1=1"
	}
	return strings.Join(conditions, " AND ")
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// studentNameSQL renders the display name of the student aliased as s.
const studentNameSQL = `TRIM(s.first_names || ' ' || s.first_surname || ' ' || COALESCE(s.second_surname, ''))`
