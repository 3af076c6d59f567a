package schema

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileTablesBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		table: events: {
			columns: {
				calendar_id: string
				title:       string
				dtstart:     int
				all_day:     bool
			}
			required: ["calendar_id", "dtstart"]
		}
	`)

	specs, err := CompileTables(v)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	spec := specs[0]
	assert.Equal(t, "events", spec.Name)
	assert.Equal(t, map[string]string{
		"calendar_id": TypeString,
		"title":       TypeString,
		"dtstart":     TypeInt,
		"all_day":     TypeBool,
	}, spec.Columns)
	assert.Equal(t, []string{"calendar_id", "dtstart"}, spec.Required)
}

func TestCompileTablesMultiple(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		table: {
			events: { columns: { title: string } }
			reminders: { columns: { event_id: string, minutes: int } }
		}
	`)

	specs, err := CompileTables(v)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "events", specs[0].Name)
	assert.Equal(t, "reminders", specs[1].Name)
}

func TestCompileTablesMissingTable(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: {}`)

	_, err := CompileTables(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one table")
}

func TestCompileTablesMissingColumns(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`table: events: { required: ["x"] }`)

	_, err := CompileTables(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns is required")
}

func TestCompileTablesRejectsFloatColumns(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`table: events: { columns: { lat: float } }`)

	_, err := CompileTables(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestCompileTablesRejectsDeclaredID(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`table: events: { columns: { id: string } }`)

	_, err := CompileTables(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implicit")
}

func TestCompileTablesRejectsUnknownRequired(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		table: events: {
			columns: { title: string }
			required: ["missing"]
		}
	`)

	_, err := CompileTables(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCompileTablesBadCUE(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`table: events: { columns: { a: string } } & "conflict"`)

	_, err := CompileTables(v)
	assert.Error(t, err)
}
