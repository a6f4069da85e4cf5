package warehouse

import (
	"fmt"
	"strings"
)

// Row is one warehouse-bound record, values ordered by the columns of the
// TableSchema that produced it.
type Row []interface{}

// ColumnDescriptor describes one column of a warehouse table. Identifier
// columns hold surrogate keys or flags and are exempt from numeric
// rounding during projection.
type ColumnDescriptor struct {
	Name       string
	Type       string
	Identifier bool
}

// TableSchema is the resolved shape of a warehouse table. It is built once
// and handed to every component that writes SQL against the table, so the
// column order in generated statements is always the same.
type TableSchema struct {
	Table     string
	KeyColumn string
	Columns   []ColumnDescriptor
}

// FactDeliveriesSchema returns the delivery fact table layout.
func FactDeliveriesSchema(table string) TableSchema {
	return TableSchema{
		Table:     table,
		KeyColumn: "DELIVERY_ID",
		Columns: []ColumnDescriptor{
			{Name: "DELIVERY_ID", Type: "NUMBER(38,0)", Identifier: true},
			{Name: "TRIP_ID", Type: "NUMBER(38,0)", Identifier: true},
			{Name: "TRACKING_NUMBER", Type: "VARCHAR(64)", Identifier: true},
			{Name: "DATE_KEY", Type: "NUMBER(8,0)", Identifier: true},
			{Name: "SCHEDULED_TIME_KEY", Type: "NUMBER(4,0)", Identifier: true},
			{Name: "DELIVERED_TIME_KEY", Type: "NUMBER(4,0)", Identifier: true},
			{Name: "VEHICLE_ID", Type: "NUMBER(38,0)", Identifier: true},
			{Name: "DRIVER_ID", Type: "NUMBER(38,0)", Identifier: true},
			{Name: "ROUTE_ID", Type: "NUMBER(38,0)", Identifier: true},
			{Name: "CUSTOMER_ID", Type: "NUMBER(38,0)", Identifier: true},
			{Name: "DELIVERY_STATUS", Type: "VARCHAR(32)", Identifier: true},
			{Name: "TRIP_STATUS", Type: "VARCHAR(32)", Identifier: true},
			{Name: "PACKAGE_WEIGHT_KG", Type: "FLOAT"},
			{Name: "DISTANCE_KM", Type: "FLOAT"},
			{Name: "DURATION_MINUTES", Type: "FLOAT"},
			{Name: "FUEL_CONSUMED_LITERS", Type: "FLOAT"},
			{Name: "FUEL_EFFICIENCY_KM_PER_LITER", Type: "FLOAT"},
			{Name: "DELAY_MINUTES", Type: "FLOAT"},
			{Name: "IS_ON_TIME", Type: "BOOLEAN", Identifier: true},
			{Name: "IS_DAMAGED", Type: "BOOLEAN", Identifier: true},
			{Name: "HAS_SIGNATURE", Type: "BOOLEAN", Identifier: true},
			{Name: "REVENUE_PER_DELIVERY", Type: "FLOAT"},
			{Name: "COST_PER_DELIVERY", Type: "FLOAT"},
			{Name: "DELIVERIES_PER_HOUR", Type: "FLOAT"},
			{Name: "DATA_QUALITY_SCORE", Type: "FLOAT"},
		},
	}
}

// ColumnNames returns the column names in schema order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// KeyIndex returns the position of the key column, or -1 when the schema
// has no such column.
func (s TableSchema) KeyIndex() int {
	for i, c := range s.Columns {
		if c.Name == s.KeyColumn {
			return i
		}
	}
	return -1
}

// CreateTableSQL builds an idempotent create statement for the table.
func (s TableSchema) CreateTableSQL() string {
	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		defs[i] = fmt.Sprintf("%s %s", quoteIdentifier(c.Name), c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		quoteIdentifier(s.Table), strings.Join(defs, ",\n    "))
}

// InsertSQL builds a multi-row insert with placeholder values.
func (s TableSchema) InsertSQL(rowCount int) string {
	placeholders := make([]string, len(s.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	rowTemplate := "(" + strings.Join(placeholders, ", ") + ")"
	rows := make([]string, rowCount)
	for i := range rows {
		rows[i] = rowTemplate
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdentifier(s.Table),
		strings.Join(quoteAll(s.ColumnNames()), ", "),
		strings.Join(rows, ", "))
}

// MergeSQL builds the merge from a staging table into the target, matching
// on the key column. Matched rows have every non-key column updated and
// unmatched rows are inserted whole.
func (s TableSchema) MergeSQL(staging string) string {
	var sets []string
	for _, c := range s.Columns {
		if c.Name == s.KeyColumn {
			continue
		}
		q := quoteIdentifier(c.Name)
		sets = append(sets, fmt.Sprintf("target.%s = source.%s", q, q))
	}
	cols := quoteAll(s.ColumnNames())
	sourceCols := make([]string, len(cols))
	for i, c := range cols {
		sourceCols[i] = "source." + c
	}
	key := quoteIdentifier(s.KeyColumn)
	return fmt.Sprintf(
		"MERGE INTO %s AS target USING %s AS source ON target.%s = source.%s "+
			"WHEN MATCHED THEN UPDATE SET %s "+
			"WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)",
		quoteIdentifier(s.Table), quoteIdentifier(staging), key, key,
		strings.Join(sets, ", "),
		strings.Join(cols, ", "),
		strings.Join(sourceCols, ", "))
}

// DeleteSQL builds a delete for one batch of key values.
func (s TableSchema) DeleteSQL(keyCount int) string {
	placeholders := make([]string, keyCount)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		quoteIdentifier(s.Table), quoteIdentifier(s.KeyColumn),
		strings.Join(placeholders, ", "))
}

// CreateStagingSQL builds an empty structural clone of the target table.
func (s TableSchema) CreateStagingSQL(staging string) string {
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s AS SELECT * FROM %s WHERE 1 = 0",
		quoteIdentifier(staging), quoteIdentifier(s.Table))
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(name), `"`, ``) + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdentifier(n)
	}
	return out
}
