// Package index holds the generated per-book search data structures: word
// shards with their file-score match strings and per-file word-pair data.
package index

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strconv"
	"strings"
)

// maxLineSize bounds one line of generated data. Match strings of very common
// words in large books can be long.
const maxLineSize = 16 << 20

// FileScores maps a book-relative file id to its accumulated relevance score.
type FileScores map[int]int

// Clone returns a copy of the table.
func (fs FileScores) Clone() FileScores {
	out := make(FileScores, len(fs))
	for id, score := range fs {
		out[id] = score
	}
	return out
}

// FileIDs returns the file ids in ascending order.
func (fs FileScores) FileIDs() []int {
	ids := make([]int, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ParseMatchString parses a "fileId,score,fileId,score,..." delivery into
// the given table, summing scores of repeated file ids. Malformed or negative
// pairs and a dangling file id are skipped; the number of skipped pairs is
// returned.
func ParseMatchString(s string, into FileScores) (skipped int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	fields := strings.Split(s, ",")
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			skipped++
			break
		}
		id, errID := strconv.Atoi(strings.TrimSpace(fields[i]))
		score, errScore := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if errID != nil || errScore != nil || id < 0 || score < 0 {
			skipped++
			continue
		}
		into[id] += score
	}
	return skipped
}

// JoinFileScores intersects the tables, summing the scores of file ids that
// appear in every table. The first table seeds the result; a file id missing
// from any later table is dropped. No tables yield an empty result. The
// inputs are not modified.
func JoinFileScores(tables ...FileScores) FileScores {
	if len(tables) == 0 {
		return FileScores{}
	}

	joined := tables[0].Clone()
	for _, table := range tables[1:] {
		for id, score := range joined {
			other, ok := table[id]
			if !ok {
				delete(joined, id)
				continue
			}
			joined[id] = score + other
		}
		if len(joined) == 0 {
			break
		}
	}
	return joined
}

// WordShard is one generated search-data delivery of a book: index word to
// match string.
type WordShard map[string]string

// ShardFor returns the shard a word is stored in for a book generated with
// shardCount shards.
func ShardFor(word string, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return int(h.Sum32() % uint32(shardCount))
}

// Add appends a match string to the word's delivery.
func (ws WordShard) Add(word, matches string) {
	if matches == "" {
		return
	}
	if existing, ok := ws[word]; ok && existing != "" {
		ws[word] = existing + "," + matches
		return
	}
	ws[word] = matches
}

// Words returns the shard's words in ascending order.
func (ws WordShard) Words() []string {
	words := make([]string, 0, len(ws))
	for w := range ws {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// ParseWordShard reads a shard in its generated line format,
// "word<TAB>fileId,score,...". Lines without a tab or word are skipped and
// counted. A word repeated on several lines accumulates its match strings.
func ParseWordShard(r io.Reader) (WordShard, int, error) {
	shard := make(WordShard)
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		word, matches, ok := strings.Cut(line, "\t")
		word = strings.TrimSpace(word)
		if !ok || word == "" {
			skipped++
			continue
		}
		shard.Add(word, strings.TrimSpace(matches))
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read word shard: %w", err)
	}
	return shard, skipped, nil
}

// WriteTo writes the shard in its generated line format, words sorted.
func (ws WordShard) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, word := range ws.Words() {
		n, err := fmt.Fprintf(bw, "%s\t%s\n", word, ws[word])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// EncodeMatches renders scores as a match string ordered by file id.
func EncodeMatches(scores FileScores) string {
	var b strings.Builder
	for i, id := range scores.FileIDs() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(scores[id]))
	}
	return b.String()
}
