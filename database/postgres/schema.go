package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
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
	"created_at":  {"timestamp with time zone", false},
	"updated_at":  {"timestamp with time zone", false},
}

// ValidateSchema checks that the items table exists in the public schema and
// carries every expected column with the expected type and nullability.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables shelf.Tables) error {
	if !shelf.IsValidTableName(tables.Items) {
		return fmt.Errorf("validate schema: invalid table name: %s", tables.Items)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
	`, tables.Items)
	if err != nil {
		return fmt.Errorf("validate schema %s: query columns: %w", tables.Items, err)
	}
	defer rows.Close()

	actual := make(map[string]column)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", tables.Items, err)
		}
		actual[name] = column{dataType: strings.ToLower(dataType), nullable: nullable == "YES"}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Items, err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("validate schema: table %s does not exist", tables.Items)
	}

	names := make([]string, 0, len(itemsColumns))
	for name := range itemsColumns {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		want := itemsColumns[name]
		got, ok := actual[name]
		switch {
		case !ok:
			problems = append(problems, "missing column "+name)
		case got.dataType != want.dataType:
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", name, want.dataType, got.dataType))
		case got.nullable != want.nullable:
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, want.nullable, got.nullable))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("validate schema %s: %s", tables.Items, strings.Join(problems, "; "))
	}

	return nil
}
