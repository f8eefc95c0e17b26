package index

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Pair is two index words that occur next to each other in a file.
type Pair struct {
	First  string
	Second string
}

// PairData is the set of adjacent word pairs attested in one file.
type PairData struct {
	pairs map[Pair]struct{}
}

// NewPairData builds pair data from the given pairs.
func NewPairData(pairs ...Pair) *PairData {
	pd := &PairData{pairs: make(map[Pair]struct{}, len(pairs))}
	for _, p := range pairs {
		pd.Add(p)
	}
	return pd
}

// Add records a pair. Pairs with an empty word are ignored.
func (pd *PairData) Add(p Pair) {
	if p.First == "" || p.Second == "" {
		return
	}
	if pd.pairs == nil {
		pd.pairs = make(map[Pair]struct{})
	}
	pd.pairs[p] = struct{}{}
}

// Contains reports whether the pair is attested.
func (pd *PairData) Contains(p Pair) bool {
	if pd == nil {
		return false
	}
	_, ok := pd.pairs[p]
	return ok
}

// Len returns the number of distinct pairs.
func (pd *PairData) Len() int {
	if pd == nil {
		return 0
	}
	return len(pd.pairs)
}

// Pairs returns all pairs ordered by first then second word.
func (pd *PairData) Pairs() []Pair {
	if pd == nil {
		return nil
	}
	out := make([]Pair, 0, len(pd.pairs))
	for p := range pd.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].First != out[j].First {
			return out[i].First < out[j].First
		}
		return out[i].Second < out[j].Second
	})
	return out
}

// ParsePairData reads a pair file, one "first second" pair per line.
// Malformed lines are skipped and counted.
func ParsePairData(r io.Reader) (*PairData, int, error) {
	pd := NewPairData()
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			skipped++
			continue
		}
		pd.Add(Pair{First: fields[0], Second: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read pair data: %w", err)
	}
	return pd, skipped, nil
}

// WriteTo writes the pair data in its generated line format.
func (pd *PairData) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, p := range pd.Pairs() {
		n, err := fmt.Fprintf(bw, "%s %s\n", p.First, p.Second)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}
