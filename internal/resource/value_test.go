package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
}

func TestSQLConversions(t *testing.T) {
	assert.Nil(t, SQL(Null{}))
	assert.Equal(t, "hello", SQL(String("hello")))
	assert.Equal(t, int64(42), SQL(Int(42)))
	assert.Equal(t, int64(1), SQL(Bool(true)))
	assert.Equal(t, int64(0), SQL(Bool(false)))
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "x", String("x")},
		{"int", 7, Int(7)},
		{"int64", int64(9), Int(9)},
		{"bool", true, Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoRejectsFloats(t *testing.T) {
	_, err := FromGo(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestValuesFromGo(t *testing.T) {
	vals, err := ValuesFromGo(map[string]any{
		"title": "standup",
		"dtstart": 1700000000,
		"all_day": false,
	})
	require.NoError(t, err)
	assert.Equal(t, Values{
		"title":   String("standup"),
		"dtstart": Int(1700000000),
		"all_day": Bool(false),
	}, vals)
}

func TestValuesFromGoRejectsFloatColumn(t *testing.T) {
	_, err := ValuesFromGo(map[string]any{"lat": 51.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "lat"`)
}

func TestValuesSortedKeysRFC8785Order(t *testing.T) {
	// UTF-16 code unit ordering: uppercase ASCII before lowercase.
	vals := Values{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"AA": Int(4),
	}

	assert.Equal(t, []string{"A", "AA", "a", "aa"}, vals.SortedKeys())
}

func TestValuesSortedKeysEmpty(t *testing.T) {
	assert.Empty(t, Values{}.SortedKeys())
}
