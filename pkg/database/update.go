package database

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

var ErrNoFields = errors.New("no updatable fields")

// psql renders $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BuildUpdate renders `UPDATE table SET a = $1, b = $2 WHERE id = $3 RETURNING ...`
// for the fields present in the allow-list. Unknown keys are dropped so a
// client can never touch a column outside the allow-list.
func BuildUpdate(table string, id int64, fields map[string]any, allowed []string, returning string) (string, []any, error) {
	set := make(map[string]any, len(allowed))
	for _, col := range allowed {
		if v, ok := fields[col]; ok {
			set[col] = v
		}
	}
	if len(set) == 0 {
		return "", nil, ErrNoFields
	}
	b := psql.Update(table).SetMap(set).Where(sq.Eq{"id": id})
	if returning != "" {
		b = b.Suffix("RETURNING " + returning)
	}
	return b.ToSql()
}
