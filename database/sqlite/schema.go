package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/sagarc03/shelf"
)

type column struct {
	dataType string
	nullable bool
}

var itemsColumns = map[string]column{
	"id":          {"text", false},
	"owner_id":    {"text", false},
	"name":        {"text", false},
	"description": {"text", false},
	"created_at":  {"text", false},
	"updated_at":  {"text", false},
}

// ValidateSchema checks that the items table exists and carries every
// expected column with the expected type and nullability. Extra columns are
// tolerated.
func ValidateSchema(ctx context.Context, db *sql.DB, tables shelf.Tables) error {
	if !shelf.IsValidTableName(tables.Items) {
		return fmt.Errorf("validate schema: invalid table name: %s", tables.Items)
	}

	actual, err := loadColumns(ctx, db, tables.Items)
	if err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Items, err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("validate schema: table %s does not exist", tables.Items)
	}

	if problems := compareColumns(itemsColumns, actual); len(problems) > 0 {
		return fmt.Errorf("validate schema %s: %s", tables.Items, strings.Join(problems, "; "))
	}

	return nil
}

func loadColumns(ctx context.Context, db *sql.DB, table string) (map[string]column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]column)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[name] = column{dataType: strings.ToLower(dataType), nullable: notNull == 0}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	return columns, nil
}

func compareColumns(want, got map[string]column) []string {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		w := want[name]
		g, ok := got[name]
		switch {
		case !ok:
			problems = append(problems, "missing column "+name)
		case g.dataType != w.dataType:
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", name, w.dataType, g.dataType))
		case g.nullable != w.nullable:
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, w.nullable, g.nullable))
		}
	}

	return problems
}
