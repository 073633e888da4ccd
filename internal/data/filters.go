package data

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hafizmfadli/film-library/internal/validator"
)

const (
	maxPage     = 10_000_000
	maxPageSize = 100
)

// Filters carries the paging and sorting parameters of a list request. Sort
// is a column name, optionally prefixed with "-" for descending order, and
// must be one of SortSafelist.
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafelist []string
}

// sortKey splits Sort into a column and an SQL direction. Sort is interpolated
// into queries, so a value outside the safelist is a programming error: the
// handler skipped ValidateFilters.
func (f Filters) sortKey() (column, direction string) {
	if !slices.Contains(f.SortSafelist, f.Sort) {
		panic("unsafe sort parameter: " + f.Sort)
	}
	if column, ok := strings.CutPrefix(f.Sort, "-"); ok {
		return column, "DESC"
	}
	return f.Sort, "ASC"
}

// orderBy renders the ORDER BY terms for a table alias. Rows without a value
// (an unrated entry) trail in both directions and id breaks ties.
func (f Filters) orderBy(alias string) string {
	column, direction := f.sortKey()
	return fmt.Sprintf("%[1]s.%[2]s %[3]s NULLS LAST, %[1]s.id ASC", alias, column, direction)
}

func (f Filters) limit() int {
	return f.PageSize
}

func (f Filters) offset() int {
	return (f.Page - 1) * f.PageSize
}

func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= maxPage, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= maxPageSize, "page_size", "must be a maximum of 100")
	v.Check(validator.In(f.Sort, f.SortSafelist...), "sort", "invalid sort value")
}

// Metadata describes where a page sits in the full result set.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// CalculateMetadata derives pagination metadata from the total number of
// matching records. An empty result yields empty metadata.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}

	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     (totalRecords + pageSize - 1) / pageSize,
		TotalRecords: totalRecords,
	}
}
