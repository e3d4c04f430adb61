// Package sqlite provides the build catalogue on an embedded SQLite database.
//
// The database lives at <data_dir>/catalogue.db, opened in WAL mode with a
// busy timeout so the CLI, the MCP server and the watcher can share it.
// Schema changes are numbered *.up.sql files in the migrations package,
// applied in order on open.
package sqlite
