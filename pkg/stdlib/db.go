package stdlib

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"sona/pkg/eval"
)

const dbHandle = "db"

var dbBridges = []registration{
	{"__native__db_open", 2, dbOpen},
	{"__native__db_exec", -1, dbExec},
	{"__native__db_query", -1, dbQuery},
	{"__native__db_close", 1, dbClose},
}

// driverName maps the names scripts use to registered database/sql drivers.
func driverName(kind string) (string, error) {
	switch kind {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported database type: %s", kind)
}

// dbOpen(kind, dsn) opens and pings a database.
func dbOpen(args ...eval.Object) (eval.Object, error) {
	kind, err := stringArg(args, 0, "database type")
	if err != nil {
		return nil, err
	}
	dsn, err := stringArg(args, 1, "dsn")
	if err != nil {
		return nil, err
	}
	driver, err := driverName(kind)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if driver == "sqlite" {
		// each connection to ":memory:" is its own database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &eval.Native{Type: dbHandle, Value: db}, nil
}

func queryArgs(args []eval.Object) (*sql.DB, string, []interface{}, error) {
	db, err := nativeArg[*sql.DB](args, 0, dbHandle)
	if err != nil {
		return nil, "", nil, err
	}
	query, err := stringArg(args, 1, "query")
	if err != nil {
		return nil, "", nil, err
	}
	params := make([]interface{}, 0, len(args)-2)
	for _, a := range args[2:] {
		params = append(params, eval.ToNative(a))
	}
	return db, query, params, nil
}

// dbExec(db, query, params...) returns the number of affected rows.
func dbExec(args ...eval.Object) (eval.Object, error) {
	db, query, params, err := queryArgs(args)
	if err != nil {
		return nil, err
	}
	result, err := db.Exec(query, params...)
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	return eval.NewInteger(affected), nil
}

// dbQuery(db, query, params...) returns the rows as dicts keyed by column,
// in column order.
func dbQuery(args ...eval.Object) (eval.Object, error) {
	db, query, params, err := queryArgs(args)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range columns {
		valuePtrs[i] = &values[i]
	}

	results := []eval.Object{}
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		row := eval.NewDict()
		for i, col := range columns {
			row.SetString(col, eval.FromNative(values[i]))
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return eval.NewArray(results...), nil
}

func dbClose(args ...eval.Object) (eval.Object, error) {
	db, err := nativeArg[*sql.DB](args, 0, dbHandle)
	if err != nil {
		return nil, err
	}
	return eval.NULL, db.Close()
}
