// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// types.go defines the document vocabulary shared across the package:
// document types, chunks, and the ProcessedDocument record returned by
// every ingestion.
package docprocessor

import (
	"encoding/json"
	"time"

	"jandocs/core"
)

// DocumentType classifies a document by its format family.
type DocumentType string

const (
	// TypePDF is a PDF document.
	TypePDF DocumentType = "pdf"

	// TypeDOCX is a modern Word document.
	TypeDOCX DocumentType = "docx"

	// TypeDOC is a legacy Word document. Extraction is not supported;
	// ingesting one returns ErrLegacyDoc with conversion guidance.
	TypeDOC DocumentType = "doc"

	// TypeXLSX is an Excel spreadsheet (.xlsx or .xls).
	TypeXLSX DocumentType = "xlsx"

	// TypeTXT covers plain-text formats (.txt, .md, .csv).
	TypeTXT DocumentType = "txt"

	// TypeImage covers raster images processed through OCR.
	TypeImage DocumentType = "image"

	// TypeUnknown is any extension the extractor does not recognize.
	TypeUnknown DocumentType = "unknown"
)

// String returns the wire form of the document type.
func (t DocumentType) String() string {
	return string(t)
}

// DetectType maps a file path to its DocumentType by extension.
// Unrecognized extensions return TypeUnknown.
func DetectType(path string) DocumentType {
	switch ext := core.NormalizeExtension(path); ext {
	case "pdf":
		return TypePDF
	case "docx":
		return TypeDOCX
	case "doc":
		return TypeDOC
	case "xlsx", "xls":
		return TypeXLSX
	case "txt", "md", "csv":
		return TypeTXT
	default:
		if imageExtensions[ext] {
			return TypeImage
		}
		return TypeUnknown
	}
}

// ChunkMetadata records where a chunk came from within its document.
type ChunkMetadata struct {
	// StartChar is the byte offset where the chunk begins in the full text
	StartChar int `json:"start_char"`

	// EndChar is the byte offset where the chunk ends (exclusive)
	EndChar int `json:"end_char"`

	// CharCount is the length of the trimmed chunk content
	CharCount int `json:"char_count"`
}

// DocumentChunk is a single chunk of extracted document content, the unit
// stored and embedded in the vector store.
type DocumentChunk struct {
	// Content is the chunk text
	Content string `json:"content"`

	// Metadata records the chunk's position in the source text
	Metadata ChunkMetadata `json:"metadata"`

	// ChunkIndex is the 0-based position of this chunk in the document
	ChunkIndex int `json:"chunk_index"`

	// DocHash identifies the parent document
	DocHash string `json:"doc_hash"`
}

// ID returns the chunk's stable store identifier, "<doc_hash>_<index>".
func (c DocumentChunk) ID() string {
	return core.ChunkID(c.DocHash, c.ChunkIndex)
}

// ProcessedDocument is the record produced by a completed ingestion.
type ProcessedDocument struct {
	// DocHash is the content hash identifying this document
	DocHash string

	// Filename is the base name of the source file
	Filename string

	// FilePath is the absolute path the document was ingested from
	FilePath string

	// DocType is the detected document type
	DocType DocumentType

	// Chunks holds the chunked content in document order
	Chunks []DocumentChunk

	// TotalTokensEstimate is the rough token count of the full text
	TotalTokensEstimate int

	// ExtractedAt is when extraction completed
	ExtractedAt time.Time

	// OCRUsed reports whether any page went through OCR
	OCRUsed bool

	// OCRPages counts the pages that went through OCR
	OCRPages int

	// Deduplicated is true when ingestion was skipped because the same
	// content hash was already indexed. Not part of the JSON view.
	Deduplicated bool
}

// ChunkCount returns the number of chunks in the document.
func (d *ProcessedDocument) ChunkCount() int {
	return len(d.Chunks)
}

// MarshalJSON flattens the record for API responses: chunk contents are
// replaced by their count, and timestamps are RFC 3339.
func (d *ProcessedDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DocHash             string    `json:"doc_hash"`
		Filename            string    `json:"filename"`
		FilePath            string    `json:"file_path"`
		DocType             string    `json:"doc_type"`
		ChunkCount          int       `json:"chunk_count"`
		TotalTokensEstimate int       `json:"total_tokens_estimate"`
		ExtractedAt         time.Time `json:"extracted_at"`
		OCRUsed             bool      `json:"ocr_used"`
		OCRPages            int       `json:"ocr_pages"`
	}{
		DocHash:             d.DocHash,
		Filename:            d.Filename,
		FilePath:            d.FilePath,
		DocType:             d.DocType.String(),
		ChunkCount:          len(d.Chunks),
		TotalTokensEstimate: d.TotalTokensEstimate,
		ExtractedAt:         d.ExtractedAt,
		OCRUsed:             d.OCRUsed,
		OCRPages:            d.OCRPages,
	})
}
