package index

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatchString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        FileScores
		wantSkipped int
	}{
		{"empty", "", FileScores{}, 0},
		{"single pair", "1,10", FileScores{1: 10}, 0},
		{"several pairs", "0,5,3,7", FileScores{0: 5, 3: 7}, 0},
		{"repeated file id sums", "2,4,2,6", FileScores{2: 10}, 0},
		{"spaces tolerated", " 1 , 2 ,3,4 ", FileScores{1: 2, 3: 4}, 0},
		{"dangling id skipped", "1,2,3", FileScores{1: 2}, 1},
		{"non numeric skipped", "x,2,4,5", FileScores{4: 5}, 1},
		{"negative skipped", "-1,2,4,-5,6,1", FileScores{6: 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FileScores{}
			skipped := ParseMatchString(tt.input, got)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSkipped, skipped)
		})
	}
}

func TestParseMatchString_AccumulatesAcrossDeliveries(t *testing.T) {
	scores := FileScores{}
	ParseMatchString("1,10,2,3", scores)
	ParseMatchString("2,4", scores)

	assert.Equal(t, FileScores{1: 10, 2: 7}, scores)
}

func TestJoinFileScores(t *testing.T) {
	a := FileScores{1: 10, 2: 5, 3: 1}
	b := FileScores{2: 3, 3: 4, 9: 9}
	c := FileScores{3: 2, 2: 1}

	t.Run("no tables", func(t *testing.T) {
		assert.Empty(t, JoinFileScores())
	})

	t.Run("single table is copied", func(t *testing.T) {
		joined := JoinFileScores(a)
		assert.Equal(t, a, joined)
		joined[1] = 99
		assert.Equal(t, 10, a[1], "input must not be modified")
	})

	t.Run("intersection sums scores", func(t *testing.T) {
		assert.Equal(t, FileScores{2: 9, 3: 7}, JoinFileScores(a, b, c))
	})

	t.Run("disjoint tables", func(t *testing.T) {
		assert.Empty(t, JoinFileScores(FileScores{1: 1}, FileScores{2: 2}))
	})

	t.Run("inputs untouched", func(t *testing.T) {
		JoinFileScores(a, b)
		assert.Equal(t, FileScores{1: 10, 2: 5, 3: 1}, a)
		assert.Equal(t, FileScores{2: 3, 3: 4, 9: 9}, b)
	})
}

func TestJoinFileScores_AndSemantics(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		tables := make([]FileScores, 1+rng.Intn(4))
		for i := range tables {
			tables[i] = FileScores{}
			for n := rng.Intn(12); n > 0; n-- {
				tables[i][rng.Intn(15)] += rng.Intn(50)
			}
		}

		joined := JoinFileScores(tables...)

		for id := 0; id < 15; id++ {
			inAll := true
			sum := 0
			for _, table := range tables {
				score, ok := table[id]
				if !ok {
					inAll = false
					break
				}
				sum += score
			}
			got, ok := joined[id]
			require.Equal(t, inAll, ok, "round %d file %d", round, id)
			if inAll {
				require.Equal(t, sum, got, "round %d file %d", round, id)
			}
		}
	}
}

func TestShardFor(t *testing.T) {
	assert.Equal(t, 0, ShardFor("anything", 0))
	assert.Equal(t, 0, ShardFor("anything", 1))

	for _, w := range []string{"setup", "install", "printer", "中"} {
		s := ShardFor(w, 5)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 5)
		assert.Equal(t, s, ShardFor(w, 5), "shard assignment must be stable")
	}
}

func TestParseWordShard(t *testing.T) {
	input := strings.Join([]string{
		"setup\t1,10",
		"",
		"install\t0,3,1,2",
		"no-tab-here",
		"\t4,4",
		"setup\t2,1",
		"windows\r",
	}, "\n")

	shard, skipped, err := ParseWordShard(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, "1,10,2,1", shard["setup"])
	assert.Equal(t, "0,3,1,2", shard["install"])
	assert.Equal(t, []string{"install", "setup"}, shard.Words())
}

func TestWordShard_WriteToRoundTrip(t *testing.T) {
	shard := WordShard{}
	shard.Add("setup", EncodeMatches(FileScores{3: 1, 1: 10}))
	shard.Add("guide", "0,2")
	shard.Add("empty", "")

	var buf bytes.Buffer
	_, err := shard.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "guide\t0,2\nsetup\t1,10,3,1\n", buf.String())

	parsed, skipped, err := ParseWordShard(&buf)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, shard, parsed)
}

func TestEncodeMatches(t *testing.T) {
	assert.Equal(t, "", EncodeMatches(FileScores{}))
	assert.Equal(t, "0,1,2,5,10,3", EncodeMatches(FileScores{10: 3, 2: 5, 0: 1}))

	parsed := FileScores{}
	ParseMatchString(EncodeMatches(FileScores{4: 8, 1: 2}), parsed)
	assert.Equal(t, FileScores{4: 8, 1: 2}, parsed)
}
