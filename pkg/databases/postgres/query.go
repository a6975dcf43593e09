package postgres

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"

	"github.com/lib/pq"
)

var comparisonOperators = map[string]string{
	"$eq":  "=",
	"$ne":  "<>",
	"$gt":  ">",
	"$gte": ">=",
	"$lt":  "<",
	"$lte": "<=",
}

var columnTypes = map[schema.FieldType]string{
	schema.String: "TEXT",
	schema.Int:    "BIGINT",
	schema.Float:  "DOUBLE PRECISION",
	schema.Bool:   "BOOLEAN",
	schema.Time:   "TIMESTAMPTZ",
}

// column maps a record field to its quoted column name.
func column(field string) string {
	if field == models.IDField {
		return pq.QuoteIdentifier(idColumn)
	}
	return pq.QuoteIdentifier(field)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// params numbers placeholders across the clauses of one statement.
type params struct {
	args []interface{}
}

func (p *params) add(v interface{}) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

func whereClause(filter models.Filter, p *params) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(filter))
	for _, field := range sortedKeys(filter) {
		value := filter[field]
		ops, ok := value.(map[string]interface{})
		if !ok {
			clauses = append(clauses, fmt.Sprintf("%s = %s", column(field), p.add(value)))
			continue
		}
		for _, op := range sortedKeys(ops) {
			operand := ops[op]
			if op == "$in" {
				list, ok := operand.([]interface{})
				if !ok {
					return "", fmt.Errorf("$in on %q expects a list", field)
				}
				clauses = append(clauses, fmt.Sprintf("%s = ANY(%s)", column(field), p.add(pq.Array(stringsOrValues(list)))))
				continue
			}
			sqlOp, ok := comparisonOperators[op]
			if !ok {
				return "", fmt.Errorf("unsupported filter operator %q", op)
			}
			clauses = append(clauses, fmt.Sprintf("%s %s %s", column(field), sqlOp, p.add(operand)))
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), nil
}

// stringsOrValues narrows a list to []string when possible so pq can encode it as text[].
func stringsOrValues(list []interface{}) interface{} {
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return list
		}
		out = append(out, s)
	}
	return out
}

func insertQuery(tableName, id string, record models.Record) (string, []interface{}) {
	p := &params{}
	columns := []string{column(models.IDField)}
	placeholders := []string{p.add(id)}
	for _, field := range sortedKeys(record) {
		if field == models.IDField {
			continue
		}
		columns = append(columns, column(field))
		placeholders = append(placeholders, p.add(record[field]))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(tableName),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	) // #nosec G201
	return query, p.args
}

func upsertQuery(tableName, id string, record models.Record) (string, []interface{}) {
	query, args := insertQuery(tableName, id, record)

	fields := sortedKeys(record)
	if len(fields) == 0 {
		return query + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", column(models.IDField)), args
	}
	sets := make([]string, 0, len(fields))
	for _, field := range fields {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", column(field), column(field)))
	}
	return query + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", column(models.IDField), strings.Join(sets, ", ")), args
}

func selectQuery(tableName string, filter models.Filter, opts models.FindOptions, limit int) (string, []interface{}, error) {
	p := &params{}

	selected := "*"
	if len(opts.Projection) > 0 {
		cols := []string{column(models.IDField)}
		for _, field := range opts.Projection {
			if field == models.IDField {
				continue
			}
			cols = append(cols, column(field))
		}
		selected = strings.Join(cols, ", ")
	}

	where, err := whereClause(filter, p)
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", selected, pq.QuoteIdentifier(tableName), where) // #nosec G201

	if len(opts.Sort) > 0 {
		orders := make([]string, 0, len(opts.Sort))
		for _, s := range opts.Sort {
			dir := "ASC"
			if s.Direction == models.Descending {
				dir = "DESC"
			}
			orders = append(orders, column(s.Field)+" "+dir)
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return query, p.args, nil
}

func updateQuery(tableName string, filter models.Filter, mutation models.Mutation) (string, []interface{}, error) {
	p := &params{}

	var sets []string
	for _, op := range sortedKeys(mutation) {
		fields, ok := mutation[op].(map[string]interface{})
		if !ok {
			return "", nil, fmt.Errorf("mutation operator %q expects a field map", op)
		}
		for _, field := range sortedKeys(fields) {
			col := column(field)
			switch op {
			case schema.SetOperator:
				sets = append(sets, fmt.Sprintf("%s = %s", col, p.add(fields[field])))
			case schema.UnsetOperator:
				sets = append(sets, fmt.Sprintf("%s = NULL", col))
			case schema.IncOperator:
				sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, 0) + %s", col, col, p.add(fields[field])))
			default:
				return "", nil, fmt.Errorf("unsupported mutation operator %q", op)
			}
		}
	}
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("mutation has no fields")
	}

	where, err := whereClause(filter, p)
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s", pq.QuoteIdentifier(tableName), strings.Join(sets, ", "), where) // #nosec G201
	return query, p.args, nil
}

func deleteQuery(tableName string, filter models.Filter) (string, []interface{}, error) {
	p := &params{}
	where, err := whereClause(filter, p)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s%s", pq.QuoteIdentifier(tableName), where), p.args, nil // #nosec G201
}

func createTableQuery(s *schema.Schema) string {
	columns := []string{column(models.IDField) + " TEXT PRIMARY KEY"}
	for _, f := range s.Fields {
		def := column(f.Name) + " " + columnTypes[f.Type]
		if f.Required {
			def += " NOT NULL"
		}
		columns = append(columns, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(s.Collection), strings.Join(columns, ", "))
}

func createIndexQuery(tableName, field string, unique bool) string {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	indexName := pq.QuoteIdentifier(tableName + "_" + field + "_idx")
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, indexName, pq.QuoteIdentifier(tableName), column(field))
}
