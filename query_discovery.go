package compgraph

import (
	"fmt"
	"strings"

	"github.com/jward/compgraph/internal/store"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// UnitFilter specifies which units to include.
type UnitFilter struct {
	Kinds      []Kind // match any of these kinds
	PathPrefix string // restrict to units in files under this path
	UsesState  *bool  // exact match on the state flag
}

// --- Discovery ---

const unitCols = "unit_id, name, kind, file_path, imports, exports, uses_state, uses_effect, uses_props, degree"

// Units returns the nodes of a run matching filter, in analysis order.
func (q *QueryBuilder) Units(runID int64, filter UnitFilter, page Pagination) (*PagedResult[Unit], error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	where, args := unitWhere(id, filter)
	return q.pagedUnits("units", where, args, "ordinal", page)
}

// Search returns the units of a run whose name, ID or any export contains
// term, case-insensitively. An empty term matches every unit.
func (q *QueryBuilder) Search(runID int64, term string, filter UnitFilter, page Pagination) (*PagedResult[Unit], error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	where, args := unitWhere(id, filter)
	if term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(unit_id) LIKE ? ESCAPE '\' OR EXISTS (
			SELECT 1 FROM json_each(units.exports) WHERE LOWER(json_each.value) LIKE ? ESCAPE '\'))`)
		args = append(args, like, like, like)
	}
	return q.pagedUnits("search", where, args, "ordinal", page)
}

// Hotspots returns the limit units with the highest degree. Ties keep
// analysis order. A limit of 0 or less uses the default page size.
func (q *QueryBuilder) Hotspots(runID int64, limit int) ([]Unit, error) {
	id, err := q.resolveRun(runID)
	if err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}
	res, err := q.pagedUnits("hotspots", []string{"run_id = ?"}, []any{id},
		"degree DESC, ordinal", Pagination{Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func unitWhere(runID int64, filter UnitFilter) ([]string, []any) {
	where := []string{"run_id = ?"}
	args := []any{runID}
	if len(filter.Kinds) > 0 {
		ph := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			ph[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(ph, ",")+")")
	}
	if prefix := normalizePathPrefix(filter.PathPrefix); prefix != "" {
		where = append(where, `file_path LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(prefix)+"%")
	}
	if filter.UsesState != nil {
		where = append(where, "uses_state = ?")
		args = append(args, *filter.UsesState)
	}
	return where, args
}

// pagedUnits runs a count query and a page query over units.
func (q *QueryBuilder) pagedUnits(op string, where []string, args []any, orderBy string, page Pagination) (*PagedResult[Unit], error) {
	page = page.normalize()
	clause := strings.Join(where, " AND ")

	var total int
	err := q.store.DB().QueryRow("SELECT COUNT(*) FROM units WHERE "+clause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	query := "SELECT " + unitCols + " FROM units WHERE " + clause +
		" ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	rows, err := q.store.DB().Query(query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	items := []Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return &PagedResult[Unit]{Items: items, TotalCount: total}, nil
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "src/components" -> "src/components/" to prevent matching "src/components_old/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUnit scans a row of unitCols into a Unit.
func scanUnit(row scanner) (Unit, error) {
	var (
		u                Unit
		kind             string
		imports, exports string
	)
	err := row.Scan(&u.ID, &u.Name, &kind, &u.FilePath, &imports, &exports,
		&u.UsesState, &u.UsesEffect, &u.UsesProps, &u.Degree)
	if err != nil {
		return u, err
	}
	u.Kind = Kind(kind)
	u.Imports = store.UnmarshalStrings(imports)
	u.Exports = store.UnmarshalStrings(exports)
	return u, nil
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
