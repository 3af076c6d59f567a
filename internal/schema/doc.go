// Package schema compiles CUE table definitions into table specs and
// SQLite DDL.
//
// Tables are declared in CUE:
//
//	table: events: {
//	    columns: {
//	        calendar_id: string
//	        title:       string
//	        dtstart:     int
//	        all_day:     bool
//	    }
//	    required: ["calendar_id", "dtstart"]
//	}
//
// Every table gets an implicit `id TEXT PRIMARY KEY`; row IDs are
// assigned by the store on insert. Column types are constrained to
// string, int, and bool - floats are forbidden, matching the payload
// value set.
package schema
