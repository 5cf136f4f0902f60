package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyDotPath(t *testing.T) {
	p, err := Parse(".a.b.c", DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, Legacy, p.Dialect)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "a", p.Steps[0].Name)
	assert.Equal(t, "b", p.Steps[1].Name)
	assert.Equal(t, "c", p.Steps[2].Name)
}

func TestParseExtendedBracketIndex(t *testing.T) {
	p, err := Parse("$.a[2]", DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, Extended, p.Dialect)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, StepIndex, p.Steps[1].Kind)
	assert.Equal(t, 2, p.Steps[1].Index)
}

func TestParseQuotedMemberName(t *testing.T) {
	p, err := Parse(`$["weird key"]`, DefaultLimits)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, StepMember, p.Steps[0].Kind)
	assert.Equal(t, "weird key", p.Steps[0].Name)
}

func TestParseSliceBounds(t *testing.T) {
	p, err := Parse("$.a[1:5:2]", DefaultLimits)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)
	sl := p.Steps[1].Slice
	require.NotNil(t, sl.Start)
	require.NotNil(t, sl.End)
	require.NotNil(t, sl.Step)
	assert.Equal(t, 1, *sl.Start)
	assert.Equal(t, 5, *sl.End)
	assert.Equal(t, 2, *sl.Step)
}

func TestParseZeroStepRejected(t *testing.T) {
	_, err := Parse("$.a[1:5:0]", DefaultLimits)
	assert.Error(t, err)
}

func TestParseRecursiveDescent(t *testing.T) {
	p, err := Parse("$..name", DefaultLimits)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.True(t, p.Steps[0].Recursive)
	assert.Equal(t, "name", p.Steps[0].Name)
}

func TestParseFilterExpression(t *testing.T) {
	p, err := Parse(`$.items[?(@.price>10 && @.active==true)]`, DefaultLimits)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)
	require.Equal(t, StepFilter, p.Steps[1].Kind)
	require.NotNil(t, p.Steps[1].Filter)
	require.Len(t, p.Steps[1].Filter.Or, 1)
	assert.Len(t, p.Steps[1].Filter.Or[0].Factors, 2)
}

func TestParseRejectsMissingRoot(t *testing.T) {
	_, err := Parse("a.b", DefaultLimits)
	assert.Error(t, err)
}
