// Package database opens and migrates the SQLite file backing the
// goveedeck device catalogue.
//
// The catalogue is small and single-writer, so the connection pool is
// pinned to one connection and WAL mode covers read concurrency. The
// schema moves forward only, through migrations embedded into the
// binary: the migrations package registers them at init and the daemon
// runs Migrate once at startup.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// All queries use parameterised statements, and the database file is
// chmodded to owner read/write only.
package database
