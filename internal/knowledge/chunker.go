package knowledge

import (
	"bufio"
	"os"
	"strings"
	"unicode/utf8"
)

// Chunk is a passage cut from a knowledge file.
type Chunk struct {
	Text       string
	Section    string
	StartLine  int
	EndLine    int
	WordCount  int
	ChunkIndex int
}

// ChunkerConfig holds configuration for the chunker.
type ChunkerConfig struct {
	// Target size for each chunk in words
	TargetWords int
	// Overlap between chunks in words
	OverlapWords int
	// Minimum words for a valid chunk
	MinWords int
}

// DefaultChunkerConfig returns defaults sized for writing tips and fact
// sheets, which are much shorter than books.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		TargetWords:  300,
		OverlapWords: 40,
		MinWords:     20,
	}
}

// Chunker splits knowledge files into overlapping passages for indexing.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkerConfig) *Chunker {
	return &Chunker{config: config}
}

// ChunkFile reads a file and splits it into chunks.
func (c *Chunker) ChunkFile(path string) ([]Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return c.ChunkLines(lines), nil
}

// ChunkText splits text into chunks.
func (c *Chunker) ChunkText(text string) []Chunk {
	return c.ChunkLines(strings.Split(text, "\n"))
}

// ChunkLines splits lines into chunks.
func (c *Chunker) ChunkLines(lines []string) []Chunk {
	lines = stripFrontMatter(lines)

	var chunks []Chunk
	var current strings.Builder
	var currentWords int
	var startLine int
	var section string
	var index int

	for i, line := range lines {
		if heading := detectHeading(line); heading != "" {
			section = heading
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
		currentWords += countWords(line)

		if currentWords < c.config.TargetWords {
			continue
		}

		text := current.String()
		breakPoint := findBreakPoint(text, c.config.TargetWords, c.config.OverlapWords)
		if breakPoint <= 0 || breakPoint >= len(text) {
			continue
		}

		chunk := Chunk{
			Text:       strings.TrimSpace(text[:breakPoint]),
			Section:    section,
			StartLine:  startLine,
			EndLine:    i,
			WordCount:  countWords(text[:breakPoint]),
			ChunkIndex: index,
		}
		if chunk.WordCount >= c.config.MinWords {
			chunks = append(chunks, chunk)
			index++
		}

		overlap := text[breakPoint:]
		current.Reset()
		current.WriteString(overlap)
		currentWords = countWords(overlap)
		startLine = i - strings.Count(overlap, "\n")
	}

	if currentWords >= c.config.MinWords {
		text := current.String()
		chunks = append(chunks, Chunk{
			Text:       strings.TrimSpace(text),
			Section:    section,
			StartLine:  startLine,
			EndLine:    len(lines) - 1,
			WordCount:  currentWords,
			ChunkIndex: index,
		})
	}

	return chunks
}

// stripFrontMatter drops a leading YAML front matter block.
func stripFrontMatter(lines []string) []string {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return lines
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return lines[i+1:]
		}
	}
	return lines
}

// detectHeading returns the text of a markdown heading or a bracketed label
// such as "[Tip: pacing]".
func detectHeading(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	if len(line) > 2 && strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
		return strings.TrimSpace(line[1 : len(line)-1])
	}
	return ""
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// findBreakPoint finds a paragraph, line or word boundary near the target
// size. The result never splits a UTF-8 sequence.
func findBreakPoint(text string, targetWords, overlapWords int) int {
	targetChars := estimateChars(targetWords - overlapWords)
	if targetChars >= len(text) {
		return len(text)
	}

	searchStart := max(0, targetChars-500)
	searchEnd := min(len(text), targetChars+500)
	area := text[searchStart:searchEnd]

	if idx := strings.LastIndex(area, "\n\n"); idx != -1 {
		return searchStart + idx + 2
	}
	if idx := strings.LastIndex(area, "\n"); idx != -1 {
		return searchStart + idx + 1
	}
	if idx := strings.LastIndex(area, " "); idx != -1 {
		return searchStart + idx + 1
	}

	for targetChars > 0 && !utf8.RuneStart(text[targetChars]) {
		targetChars--
	}
	return targetChars
}

// estimateChars estimates byte count from word count.
func estimateChars(words int) int {
	return words * 6
}
