// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// chunker.go implements the SemanticChunker molecule that splits extracted
// text into overlapping chunks sized for embedding, snapping chunk ends to
// sentence boundaries where one is close enough.
package docprocessor

import (
	"strings"
	"unicode/utf8"
)

// sentenceBoundaries are the break strings searched for when snapping a
// chunk end, in priority order for equal distances.
var sentenceBoundaries = []string{". ", ".\n", ".\t", "? ", "!\n", "?\n", "! ", "\n\n"}

// boundaryWindow is how far (in bytes) the chunker searches backward from
// a target cut point for a sentence boundary.
const boundaryWindow = 200

// ChunkerConfig holds configuration for semantic chunking.
type ChunkerConfig struct {
	// ChunkSize is the target tokens per chunk
	ChunkSize int

	// ChunkOverlap is the tokens repeated between consecutive chunks for
	// continuity across boundaries
	ChunkOverlap int

	// CharsPerToken converts the token targets to character counts.
	// Roughly 4 for English text.
	CharsPerToken float64
}

// DefaultChunkerConfig returns the chunking defaults: 1000-token chunks
// with 100 tokens of overlap, sized so several relevant chunks fit in a
// large local-model context window together.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize:     1000,
		ChunkOverlap:  100,
		CharsPerToken: 4.0,
	}
}

// SemanticChunker splits text into overlapping chunks at sentence
// boundaries.
//
// Thread-Safety:
//   - SemanticChunker is safe for concurrent use (stateless)
type SemanticChunker struct {
	cfg ChunkerConfig
}

// NewSemanticChunker creates a SemanticChunker. Non-positive sizes fall
// back to defaults, and the overlap is clamped below the chunk size to
// guarantee forward progress.
func NewSemanticChunker(cfg ChunkerConfig) *SemanticChunker {
	def := DefaultChunkerConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.CharsPerToken < 1 {
		cfg.CharsPerToken = def.CharsPerToken
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 2
	}
	return &SemanticChunker{cfg: cfg}
}

// Chunk splits text into overlapping chunks attributed to docHash.
//
// Each chunk targets ChunkSize × CharsPerToken bytes. When the cut point
// is not the end of the text, the chunker looks back up to boundaryWindow
// bytes for the nearest sentence boundary and snaps to it, unless that
// would shrink the chunk below half its target size. The next chunk
// starts ChunkOverlap tokens before the previous end.
//
// Parameters:
//   - text: the full document text
//   - docHash: the owning document's identifier
//
// Returns the chunks in document order. Whitespace-only input returns nil.
func (c *SemanticChunker) Chunk(text, docHash string) []DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunkChars := int(float64(c.cfg.ChunkSize) * c.cfg.CharsPerToken)
	if chunkChars < 1 {
		chunkChars = 1
	}
	overlapChars := int(float64(c.cfg.ChunkOverlap) * c.cfg.CharsPerToken)

	var chunks []DocumentChunk
	start := 0
	chunkIndex := 0

	for start < len(text) {
		end := start + chunkChars
		last := end >= len(text)
		if last {
			end = len(text)
		} else {
			if boundary := findSentenceBoundary(text, end); boundary > start+chunkChars/2 {
				end = boundary
			}
			// Offsets are bytes; never cut a multi-byte rune in half.
			for end > start+1 && !utf8.RuneStart(text[end]) {
				end--
			}
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, DocumentChunk{
				Content: content,
				Metadata: ChunkMetadata{
					StartChar: start,
					EndChar:   end,
					CharCount: len(content),
				},
				ChunkIndex: chunkIndex,
				DocHash:    docHash,
			})
			chunkIndex++
		}

		if last {
			break
		}

		prevStart := 0
		if len(chunks) > 0 {
			prevStart = chunks[len(chunks)-1].Metadata.StartChar
		}
		start = end - overlapChars
		if start <= prevStart {
			start = end
		}
	}

	return chunks
}

// EstimateChunkCount predicts how many chunks a text will produce without
// chunking it, for progress reporting.
func (c *SemanticChunker) EstimateChunkCount(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	chunkChars := int(float64(c.cfg.ChunkSize) * c.cfg.CharsPerToken)
	if chunkChars < 1 {
		chunkChars = 1
	}
	stride := chunkChars - int(float64(c.cfg.ChunkOverlap)*c.cfg.CharsPerToken)
	if stride < 1 {
		stride = 1
	}
	return (len(text) + stride - 1) / stride
}

// findSentenceBoundary returns the end position of the sentence boundary
// nearest to pos within the backward search window, or pos itself when no
// boundary is found. A boundary starting exactly at the window edge is
// ignored so the window cannot degenerate into always matching its start.
func findSentenceBoundary(text string, pos int) int {
	searchStart := pos - boundaryWindow
	if searchStart < 0 {
		searchStart = 0
	}

	best := pos
	bestDistance := boundaryWindow

	for _, boundary := range sentenceBoundaries {
		idx := strings.LastIndex(text[searchStart:pos], boundary)
		if idx <= 0 {
			continue
		}
		abs := searchStart + idx
		if distance := pos - abs; distance < bestDistance {
			best = abs + len(boundary)
			bestDistance = distance
		}
	}

	return best
}
