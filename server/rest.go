package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/labstack/echo/v4"
)

// tables lists the exposed entities and their columns. Anything else 404s.
var tables = map[string][]string{
	"tasks": {"id", "title", "notes", "status", "tag_id", "project_id", "has_time",
		"due_date", "start_ts", "end_ts", "parent_id", "series_id", "created_at", "updated_at"},
	"tags":     {"id", "name"},
	"projects": {"id", "name", "tag_id"},
}

func tableColumns(c echo.Context) ([]string, string, bool) {
	name := c.Param("table")
	cols, ok := tables[name]
	return cols, name, ok
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// handleList serves GET /rest/v1/:table?select=...&order=field.dir. The
// select list is accepted but rows always carry the full column set.
func (s *Server) handleList(c echo.Context) error {
	cols, table, ok := tableColumns(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown table"})
	}

	q := s.sb.Select(cols...).From(table)

	if order := c.QueryParam("order"); order != "" {
		field, dir, _ := strings.Cut(order, ".")
		if contains(cols, field) {
			if dir != "asc" && dir != "desc" {
				dir = "asc"
			}
			q = q.OrderBy(field + " " + dir)
		}
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	rows, err := s.db.Queryx(sqlStr, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		out = append(out, normalizeRow(row))
	}
	return c.JSON(http.StatusOK, out)
}

// handleUpsert serves POST /rest/v1/:table?on_conflict=id with merge
// semantics: insert when the id is absent, otherwise merge the provided
// fields into the existing row. The stored row comes back as a one-element
// representation.
func (s *Server) handleUpsert(c echo.Context) error {
	cols, table, ok := tableColumns(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown table"})
	}

	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}

	fields := map[string]any{}
	for k, v := range body {
		if k != "id" && contains(cols, k) {
			fields[k] = sanitizeValue(v)
		}
	}

	id, hasID := numericID(body["id"])

	// Tags and projects are also unique by name, so an id-less insert of an
	// existing name merges into that row instead of violating the
	// constraint.
	if !hasID && table != "tasks" {
		if name, ok := body["name"].(string); ok {
			sqlStr, args, _ := s.sb.Select("id").From(table).Where(sq.Eq{"name": name}).ToSql()
			var existing int64
			if err := s.db.QueryRow(sqlStr, args...).Scan(&existing); err == nil {
				id, hasID = existing, true
			}
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if hasID && s.rowExists(table, id) {
		if table == "tasks" {
			fields["updated_at"] = now
		}
		if len(fields) > 0 {
			upd := s.sb.Update(table).Where(sq.Eq{"id": id})
			for k, v := range fields {
				upd = upd.Set(k, v)
			}
			sqlStr, args, err := upd.ToSql()
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
			if _, err := s.db.Exec(sqlStr, args...); err != nil {
				return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
			}
		}
	} else {
		if !hasID {
			var err error
			id, err = s.nextID(table)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
		}
		fields["id"] = id
		if table == "tasks" {
			if _, ok := fields["created_at"]; !ok {
				fields["created_at"] = now
			}
			if _, ok := fields["updated_at"]; !ok {
				fields["updated_at"] = now
			}
		}
		names := make([]string, 0, len(fields))
		values := make([]any, 0, len(fields))
		for k, v := range fields {
			names = append(names, k)
			values = append(values, v)
		}
		sqlStr, args, err := s.sb.Insert(table).Columns(names...).Values(values...).ToSql()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if _, err := s.db.Exec(sqlStr, args...); err != nil {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
	}

	row, err := s.fetchRow(table, cols, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, []map[string]any{row})
}

// handleDelete serves DELETE /rest/v1/:table?id=eq.N (or id=gt.N for the
// wipe path). Deleting rows that are already gone succeeds.
func (s *Server) handleDelete(c echo.Context) error {
	_, table, ok := tableColumns(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown table"})
	}

	filter := c.QueryParam("id")
	op, value, found := strings.Cut(filter, ".")
	if !found {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing id filter"})
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id filter"})
	}

	del := s.sb.Delete(table)
	switch op {
	case "eq":
		del = del.Where(sq.Eq{"id": id})
	case "gt":
		del = del.Where(sq.Gt{"id": id})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported id filter"})
	}

	sqlStr, args, err := del.ToSql()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if _, err := s.db.Exec(sqlStr, args...); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) rowExists(table string, id int64) bool {
	sqlStr, args, _ := s.sb.Select("id").From(table).Where(sq.Eq{"id": id}).ToSql()
	var got int64
	return s.db.QueryRow(sqlStr, args...).Scan(&got) == nil
}

func (s *Server) nextID(table string) (int64, error) {
	var id int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM ` + table).Scan(&id); err != nil {
		return 0, fmt.Errorf("next id for %s: %w", table, err)
	}
	return id, nil
}

func (s *Server) fetchRow(table string, cols []string, id int64) (map[string]any, error) {
	sqlStr, args, err := s.sb.Select(cols...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	row := map[string]any{}
	r := s.db.QueryRowx(sqlStr, args...)
	if err := r.MapScan(row); err != nil {
		return nil, err
	}
	return normalizeRow(row), nil
}

// sanitizeValue maps JSON values onto portable column values. Booleans
// become integers so the same column type works on both engines.
func sanitizeValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return int64(x)
	default:
		return v
	}
}

// normalizeRow converts driver values back to the JSON shapes clients
// expect: byte slices to strings, has_time to a bool.
func normalizeRow(row map[string]any) map[string]any {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			v = row[k]
		}
		if k == "has_time" {
			row[k] = toBool(v)
		}
	}
	return row
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x == "1" || x == "true" || x == "t"
	default:
		return false
	}
}

func numericID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case int64:
		return x, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
