package resource

import (
	"fmt"
	"net/url"
	"strings"
)

// ParamSyncAdapter is the query parameter a synchronization agent sets
// on a mutation URI to identify itself. Mutations carrying
// caller_is_sync_adapter=true are not echoed back to the network by
// the change notifier.
const ParamSyncAdapter = "caller_is_sync_adapter"

// URI addresses a table or a single row in a store.
//
// Format:
//
//	table[/rowid][?caller_is_sync_adapter=true|false]
//
// Examples:
//
//	"events"                                  - the events table
//	"events/0193b1ce-..."                     - one row
//	"events?caller_is_sync_adapter=true"      - table, sync-adapter caller
//
// URI is a plain string type so it survives YAML, flags, and logs
// unchanged; use Validate before trusting external input.
type URI string

// JoinRow builds a row URI from a table name and row ID.
func JoinRow(table, id string) URI {
	return URI(table + "/" + id)
}

// Table returns the table component, "" if the URI is malformed.
func (u URI) Table() string {
	path := u.path()
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// RowID returns the row component, "" if the URI addresses a table.
func (u URI) RowID() string {
	path := u.path()
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return ""
}

// SyncAdapter reports whether the URI declares a sync-adapter caller.
// Absent or malformed parameters read as false.
func (u URI) SyncAdapter() bool {
	q := u.query()
	if q == "" {
		return false
	}
	vals, err := url.ParseQuery(q)
	if err != nil {
		return false
	}
	return vals.Get(ParamSyncAdapter) == "true"
}

// Validate checks the URI shape: non-empty table, no empty row ID
// after a slash, parseable query string.
func (u URI) Validate() error {
	path := u.path()
	if path == "" {
		return fmt.Errorf("uri %q: empty table", string(u))
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		if path[:i] == "" {
			return fmt.Errorf("uri %q: empty table", string(u))
		}
		if path[i+1:] == "" {
			return fmt.Errorf("uri %q: empty row id", string(u))
		}
		if strings.IndexByte(path[i+1:], '/') >= 0 {
			return fmt.Errorf("uri %q: too many path segments", string(u))
		}
	}
	if q := u.query(); q != "" {
		if _, err := url.ParseQuery(q); err != nil {
			return fmt.Errorf("uri %q: bad query: %w", string(u), err)
		}
	}
	return nil
}

func (u URI) path() string {
	s := string(u)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i]
	}
	return s
}

func (u URI) query() string {
	s := string(u)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[i+1:]
	}
	return ""
}
