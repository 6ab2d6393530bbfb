package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeText builds n words "w1 w2 ...", adding a period to the 1-based
// positions listed in stops.
func makeText(n int, stops ...int) string {
	stop := make(map[int]bool, len(stops))
	for _, s := range stops {
		stop[s] = true
	}
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i+1)
		if stop[i+1] {
			words[i] += "."
		}
	}
	return strings.Join(words, " ")
}

func wordCounts(chunks []Chunk) []int {
	counts := make([]int, len(chunks))
	for i, c := range chunks {
		counts[i] = c.WordCount
	}
	return counts
}

func TestBuild_BlankInput(t *testing.T) {
	assert.Empty(t, Build(""))
	assert.Empty(t, Build("   \n\t  "))
}

func TestBuild_ShortDocumentIsOneChunk(t *testing.T) {
	text := makeText(140)
	chunks := Build(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 140, chunks[0].WordCount)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[0].End)
}

func TestBuild_OneBelowMinimumNeverSplits(t *testing.T) {
	chunks := Build(makeText(149, 10, 50, 100))

	require.Len(t, chunks, 1)
	assert.Equal(t, 149, chunks[0].WordCount)
}

func TestBuild_SentenceEndBeforeMinimumIsIgnored(t *testing.T) {
	chunks := Build(makeText(200, 50))

	require.Len(t, chunks, 1)
	assert.Equal(t, 200, chunks[0].WordCount)
}

func TestBuild_SplitsAtSentenceEndAfterMinimum(t *testing.T) {
	chunks := Build(makeText(400, 180))

	require.Len(t, chunks, 2)
	assert.Equal(t, []int{180, 220}, wordCounts(chunks))
	assert.True(t, strings.HasSuffix(chunks[0].Text, "w180."))
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w181"))
}

func TestBuild_TargetClosesWithoutPunctuation(t *testing.T) {
	// 300 + 300 + 120 leftovers; 300+120 exceeds the max so the leftovers
	// become their own chunk.
	chunks := Build(makeText(720))

	assert.Equal(t, []int{300, 300, 120}, wordCounts(chunks))
}

func TestBuild_LeftoversMergeIntoLastChunk(t *testing.T) {
	chunks := Build(makeText(650))

	require.Len(t, chunks, 2)
	assert.Equal(t, []int{300, 350}, wordCounts(chunks))
	assert.True(t, strings.HasSuffix(chunks[1].Text, "w650"))
}

func TestBuild_TrailingRemainderAfterSentenceMerges(t *testing.T) {
	// Word 300 closes the first chunk; the 20 trailing words never reach
	// the minimum and fit under the max, so they merge into it.
	chunks := Build(makeText(320, 300))

	require.Len(t, chunks, 1)
	assert.Equal(t, 320, chunks[0].WordCount)
}

func TestBuild_TrailingRemainderTooLargeToMerge(t *testing.T) {
	chunks := Build(makeText(420, 300))

	require.Len(t, chunks, 2)
	assert.Equal(t, []int{300, 120}, wordCounts(chunks))
}

func TestBuild_ExclamationAndQuestionMarks(t *testing.T) {
	words := strings.Fields(makeText(500))
	words[159] += "!"
	words[339] += "?"
	chunks := Build(strings.Join(words, " "))

	assert.Equal(t, []int{160, 180, 160}, wordCounts(chunks))
}

func TestBuild_Properties(t *testing.T) {
	inputs := []string{
		makeText(1),
		makeText(151, 151),
		makeText(999, 155, 420, 777),
		makeText(1234),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 120),
	}

	for i, text := range inputs {
		t.Run(fmt.Sprintf("input-%d", i), func(t *testing.T) {
			chunks := Build(text)
			require.NotEmpty(t, chunks)

			total := 0
			prevEnd := -1
			var joined []string
			for j, c := range chunks {
				assert.Equal(t, j, c.Index)
				assert.Greater(t, c.Start, prevEnd, "spans must increase")
				assert.LessOrEqual(t, c.Start, c.End)
				if j < len(chunks)-1 {
					assert.GreaterOrEqual(t, c.WordCount, 150)
					assert.LessOrEqual(t, c.WordCount, 400)
				}
				assert.Equal(t, c.WordCount, len(strings.Fields(c.Text)))
				total += c.WordCount
				prevEnd = c.End
				joined = append(joined, c.Text)
			}
			assert.Equal(t, len(strings.Fields(text)), total)
			assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(joined, " ")))
		})
	}
}

func TestBuild_OffsetsPointIntoSource(t *testing.T) {
	words := strings.Fields(makeText(430, 200))
	text := "  " + strings.Join(words[:100], "\n") + "\n\n" + strings.Join(words[100:], "   ") + " \n"

	chunks := Build(text)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, strings.Fields(c.Text), strings.Fields(text[c.Start:c.End]))
	}
	assert.Equal(t, 2, chunks[0].Start)
}

func TestBuild_Idempotent(t *testing.T) {
	text := makeText(870, 160, 480)
	assert.Equal(t, Build(text), Build(text))
}

func TestBuildWithConfig_CustomSizes(t *testing.T) {
	cfg := Config{TargetWords: 10, MinWords: 5, MaxWords: 12}
	chunks := BuildWithConfig(makeText(23, 7), cfg)

	// 7 (sentence end), 10 (target), then the last word closes the final 6.
	assert.Equal(t, []int{7, 10, 6}, wordCounts(chunks))
}

func TestBuildWithConfig_ZeroValuesUseDefaults(t *testing.T) {
	assert.Equal(t, Build(makeText(700)), BuildWithConfig(makeText(700), Config{}))
}

func TestBuildWithConfig_ZeroMaxKeepsMergeLimit(t *testing.T) {
	chunks := BuildWithConfig(makeText(700), Config{TargetWords: 300, MinWords: 150})
	assert.Equal(t, []int{300, 400}, wordCounts(chunks))
}

func TestIsSentenceEnd(t *testing.T) {
	assert.True(t, IsSentenceEnd("end."))
	assert.True(t, IsSentenceEnd("really?"))
	assert.True(t, IsSentenceEnd("wow!"))
	assert.False(t, IsSentenceEnd("comma,"))
	assert.False(t, IsSentenceEnd("quote.\""))
	assert.False(t, IsSentenceEnd(""))
}

func TestSplice(t *testing.T) {
	text := makeText(400, 180)
	chunks := Build(text)
	require.Len(t, chunks, 2)

	out := Splice(text, chunks[1], "replaced")
	assert.Equal(t, text[:chunks[1].Start]+"replaced", out)

	out = Splice(text, chunks[0], "head")
	assert.True(t, strings.HasPrefix(out, "head w181"))
}

func TestSplice_ClampsOutOfRange(t *testing.T) {
	assert.Equal(t, "abX", Splice("abc", Chunk{Start: 2, End: 99}, "X"))
	assert.Equal(t, "Xabc", Splice("abc", Chunk{Start: -4, End: -1}, "X"))
}

func TestFind(t *testing.T) {
	chunks := Build(makeText(720))

	c, ok := Find(chunks, 2)
	require.True(t, ok)
	assert.Equal(t, 120, c.WordCount)

	_, ok = Find(chunks, 3)
	assert.False(t, ok)
}
