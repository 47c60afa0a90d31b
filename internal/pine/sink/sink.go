// Package sink persists a script run's OutputData plot/line buffers to
// a SQL database, selected by driver name the way the teacher's
// database manager selects a driver from a connection's declared type.
//
// Grounded on the teacher's internal/database/db_manager.go
// (DBManager.Connect's driver-name switch, connection pool
// configuration, ping-on-connect). database/sql +
// modernc.org/sqlite (default, file-based), github.com/lib/pq,
// github.com/go-sql-driver/mysql and github.com/denisenkom/go-mssqldb
// are registered as alternate drivers; github.com/ncruces/go-strftime
// formats each bar's timestamp for the persisted row.
package sink

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/ncruces/go-strftime"
	_ "modernc.org/sqlite"

	"pine/internal/pine/ctx"
)

// driverName maps a short, host-facing database type to the
// database/sql driver name registered for it.
func driverName(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3", "":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("sink: unsupported database type %q", dbType)
	}
}

// Sink persists output series to a SQL table.
type Sink struct {
	db    *sql.DB
	table string
}

// Open connects to dsn using the driver named by dbType and ensures the
// output table exists.
func Open(dbType, dsn, table string) (*Sink, error) {
	drv, err := driverName(dbType)
	if err != nil {
		return nil, err
	}
	if table == "" {
		table = "pine_outputs"
	}
	db, err := sql.Open(drv, dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", drv, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: ping %s: %w", drv, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Sink{db: db, table: table}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureTable() error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		run_id TEXT NOT NULL,
		output_name TEXT NOT NULL,
		bar_index INTEGER NOT NULL,
		bar_time TEXT NOT NULL,
		value REAL
	)`, s.table)
	_, err := s.db.Exec(stmt)
	return err
}

// Write persists one run's named output buffers. barTimestamps[i] is the
// unix timestamp of bar i; a nil value in an OutputData.Values slice
// (spec.md's "na this bar") is written as SQL NULL rather than 0.
func (s *Sink) Write(runID string, outputs map[string]*ctx.OutputData, barTimestamps []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	insert := fmt.Sprintf(`INSERT INTO %s (run_id, output_name, bar_index, bar_time, value) VALUES (?, ?, ?, ?, ?)`, s.table)
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for name, data := range outputs {
		for i, v := range data.Values {
			barIdx := data.Start + i
			var ts string
			if barIdx >= 0 && barIdx < len(barTimestamps) {
				ts = strftime.Format("%Y-%m-%d %H:%M:%S", time.Unix(barTimestamps[barIdx], 0).UTC())
			}
			var sqlVal interface{}
			if v != nil {
				sqlVal = *v
			}
			if _, err := stmt.Exec(runID, name, barIdx, ts, sqlVal); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error { return s.db.Close() }
