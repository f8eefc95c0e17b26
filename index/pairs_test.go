package index

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairData_Basics(t *testing.T) {
	pd := NewPairData(Pair{"quick", "start"}, Pair{"start", "guide"}, Pair{"quick", "start"}, Pair{"", "x"})

	assert.Equal(t, 2, pd.Len())
	assert.True(t, pd.Contains(Pair{"quick", "start"}))
	assert.False(t, pd.Contains(Pair{"start", "quick"}), "pairs are ordered")
	assert.Equal(t, []Pair{{"quick", "start"}, {"start", "guide"}}, pd.Pairs())

	var nilData *PairData
	assert.False(t, nilData.Contains(Pair{"a", "b"}))
	assert.Zero(t, nilData.Len())
	assert.Nil(t, nilData.Pairs())
}

func TestParsePairData(t *testing.T) {
	input := "quick start\n\nstart guide\nthree words here\nlonely\n  user   manual  \n"

	pd, skipped, err := ParsePairData(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, 3, pd.Len())
	assert.True(t, pd.Contains(Pair{"user", "manual"}))
}

func TestPairData_WriteToRoundTrip(t *testing.T) {
	pd := NewPairData(Pair{"b", "c"}, Pair{"a", "b"})

	var buf bytes.Buffer
	_, err := pd.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "a b\nb c\n", buf.String())

	parsed, skipped, err := ParsePairData(&buf)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, pd.Pairs(), parsed.Pairs())
}
