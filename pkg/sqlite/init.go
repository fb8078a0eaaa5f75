package sqlite

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
)

// DriverName is a go-sqlite3 driver that applies connection pragmas on every
// new connection, so they hold for pooled and in-memory connections alike.
const DriverName = "sqlite3_replydesk"

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, p := range pragmas {
				if _, err := conn.Exec(p, nil); err != nil {
					return err
				}
			}
			return nil
		},
	})
}
