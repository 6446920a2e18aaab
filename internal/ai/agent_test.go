package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain query",
			in:   "SELECT count() FROM graduation_calls",
			want: "SELECT count() FROM graduation_calls",
		},
		{
			name: "fenced with language tag",
			in:   "```sql\nSELECT symbol FROM graduation_calls\n```",
			want: "SELECT symbol FROM graduation_calls",
		},
		{
			name: "fenced without tag",
			in:   "```\nSELECT symbol FROM graduation_calls\n```",
			want: "SELECT symbol FROM graduation_calls",
		},
		{
			name: "trailing semicolon",
			in:   "SELECT symbol FROM graduation_calls;",
			want: "SELECT symbol FROM graduation_calls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSQL(tt.in))
		})
	}
}

func TestValidateSQL(t *testing.T) {
	require.NoError(t, validateSQL("SELECT count() FROM graduation_calls WHERE score > 7"))
	require.NoError(t, validateSQL("SELECT symbol FROM gradwatch.graduation_calls LIMIT 10"))

	assert.Error(t, validateSQL(""))
	assert.Error(t, validateSQL("DROP TABLE graduation_calls"))
	assert.Error(t, validateSQL("SELECT 1 FROM graduation_calls; DELETE FROM graduation_calls"))
	assert.Error(t, validateSQL("INSERT INTO graduation_calls VALUES (1)"))
	assert.Error(t, validateSQL("SELECT count() FROM swaps"), "must target the calls table")
	assert.Error(t, validateSQL("SELECT 1 FROM graduation_calls WHERE x IN (SELECT y FROM t); DROP TABLE z"))
}
