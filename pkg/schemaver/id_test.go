package schemaver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id, err := Parse("https://bank.example.com/schemas/loan/v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "loan", id.EntityType)
	assert.Equal(t, uint64(1), id.Major())
	assert.Equal(t, uint64(2), id.Version.Minor())

	id, err = Parse("https://bank.example.com/schemas/facility/v2.0.0/")
	require.NoError(t, err)
	assert.Equal(t, "facility", id.EntityType)
	assert.Equal(t, uint64(2), id.Major())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"loan",
		"https://bank.example.com/schemas/loan/1.0.0",
		"https://bank.example.com/schemas/loan/vNaN",
	} {
		_, err := Parse(raw)
		assert.Error(t, err, "expected parse failure for %q", raw)
	}
}
