package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/engir-api/internal/models"
)

// Domain level failures surfaced by transactional writes.
var (
	ErrClassroomFull       = errors.New("classroom is full")
	ErrDuplicateEnrollment = errors.New("enrollment already exists for this email")
)

// conditionSet accumulates WHERE fragments with positional arguments.
type conditionSet struct {
	clauses []string
	args    []interface{}
}

// add appends a clause where every "?" is replaced by the next placeholder bound to value.
func (s *conditionSet) add(clause string, value interface{}) {
	placeholder := fmt.Sprintf("$%d", len(s.args)+1)
	s.clauses = append(s.clauses, strings.ReplaceAll(clause, "?", placeholder))
	s.args = append(s.args, value)
}

// addEach binds the i-th "?" in clause to values[i].
func (s *conditionSet) addEach(clause string, values ...interface{}) {
	for _, value := range values {
		placeholder := fmt.Sprintf("$%d", len(s.args)+1)
		clause = strings.Replace(clause, "?", placeholder, 1)
		s.args = append(s.args, value)
	}
	s.clauses = append(s.clauses, clause)
}

func (s *conditionSet) where() string {
	if len(s.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(s.clauses, " AND ")
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// pageWindow clamps page and size and returns the LIMIT/OFFSET pair.
func pageWindow(opts models.ListOptions) (limit, offset int) {
	n := opts.Normalized()
	return n.PageSize, (n.Page - 1) * n.PageSize
}

// orderBy resolves a user supplied sort key against an allow list of column expressions.
// A leading "-" on SortBy means descending, matching the ordering query parameter.
func orderBy(opts models.ListOptions, allowed map[string]string, fallbackKey, fallbackOrder string) string {
	key := opts.SortBy
	order := strings.ToUpper(opts.SortOrder)
	if strings.HasPrefix(key, "-") {
		key = strings.TrimPrefix(key, "-")
		order = "DESC"
	}

	column, ok := allowed[key]
	if !ok {
		return allowed[fallbackKey] + " " + fallbackOrder
	}
	if order != "DESC" {
		order = "ASC"
	}
	return column + " " + order
}
