package shared

import (
	"strconv"
	"strings"

	core "github.com/salonpos/salonpos/internal/shared"
)

// ListQuery assembles the filtered, sorted and paginated SELECT used by list endpoints.
type ListQuery struct {
	Select       string
	From         string
	SearchFields []string
	SortColumns  map[string]string
	DefaultSort  string
	// IDColumn breaks sort ties; defaults to "id".
	IDColumn string

	where []string
	args  []any
}

// Where appends an AND condition; use ? as the placeholder for arg.
func (q *ListQuery) Where(cond string, arg any) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(q.args)), 1))
}

// Build returns the count query, the page query and their shared args.
func (q *ListQuery) Build(f core.ListFilters) (countSQL, pageSQL string, countArgs, pageArgs []any) {
	if search := strings.TrimSpace(f.Search); search != "" && len(q.SearchFields) > 0 {
		q.args = append(q.args, "%"+search+"%")
		ph := "$" + strconv.Itoa(len(q.args))
		ors := make([]string, len(q.SearchFields))
		for i, field := range q.SearchFields {
			ors[i] = field + " ILIKE " + ph
		}
		q.where = append(q.where, "("+strings.Join(ors, " OR ")+")")
	}
	where := ""
	if len(q.where) > 0 {
		where = " WHERE " + strings.Join(q.where, " AND ")
	}
	countSQL = "SELECT COUNT(*) FROM " + q.From + where

	column, ok := q.SortColumns[f.SortBy]
	if !ok {
		column = q.DefaultSort
	}
	dir := "ASC"
	if f.Desc() {
		dir = "DESC"
	}
	idColumn := q.IDColumn
	if idColumn == "" {
		idColumn = "id"
	}
	countArgs = append([]any(nil), q.args...)
	pageArgs = append(append([]any(nil), q.args...), f.Limit, f.Offset())
	n := len(q.args)
	pageSQL = "SELECT " + q.Select + " FROM " + q.From + where +
		" ORDER BY " + column + " " + dir + ", " + idColumn + " " + dir +
		" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	return countSQL, pageSQL, countArgs, pageArgs
}

// Page is the JSON envelope of list endpoints.
type Page[T any] struct {
	Data       []T             `json:"data"`
	Pagination core.Pagination `json:"pagination"`
}

// NewPage wraps rows with pagination metadata.
func NewPage[T any](rows []T, total int, f core.ListFilters) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Data: rows, Pagination: core.NewPagination(f.Page, f.Limit, total)}
}
