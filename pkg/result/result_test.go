package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatesChildren(t *testing.T) {
	assert.True(t, StatusPass.GatesChildren())
	assert.True(t, StatusWarn.GatesChildren())
	assert.False(t, StatusFail.GatesChildren())
	assert.False(t, StatusNoRun.GatesChildren())
	assert.False(t, StatusError.GatesChildren())
}

func sampleForest() []Result {
	return []Result{
		{
			RuleID: "rule_001_v1",
			Status: StatusPass,
			Children: []Result{
				{RuleID: "rule_002_v1", Status: StatusFail, Message: "balance exceeds principal"},
				{RuleID: "rule_003_v1", Status: StatusPass, Children: []Result{
					{RuleID: "rule_004_v1", Status: StatusNoRun},
				}},
			},
		},
		{RuleID: "rule_005_v1", Status: StatusPass},
	}
}

func TestCount(t *testing.T) {
	forest := sampleForest()
	assert.Equal(t, 5, Count(forest))
	assert.Equal(t, 3, CountStatus(forest, StatusPass))
	assert.Equal(t, 1, CountStatus(forest, StatusFail))
	assert.Equal(t, 1, CountStatus(forest, StatusNoRun))
	assert.Equal(t, 0, CountStatus(forest, StatusError))
}

func TestFingerprintIgnoresTiming(t *testing.T) {
	a := sampleForest()
	b := sampleForest()
	b[0].ExecutionTimeMS = 12.34
	b[0].Children[0].ExecutionTimeMS = 0.56

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
	assert.Contains(t, fpA, "sha256:")
}

func TestFingerprintSensitiveToOutcome(t *testing.T) {
	a := sampleForest()
	b := sampleForest()
	b[0].Children[0].Status = StatusPass
	b[0].Children[0].Message = ""

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB)
}
