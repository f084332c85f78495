package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DocumentIDLength is the number of hex characters kept from a full SHA256
// digest when deriving document identifiers. 16 characters (64 bits) is
// enough to make collisions across a personal document library negligible
// while keeping identifiers readable in logs and URLs.
const DocumentIDLength = 16

// ComputeSHA256 computes the SHA256 hash of a file and returns it as a hexadecimal string.
//
// Parameters:
//   - filepath: absolute or relative path to the file to hash
//
// Returns:
//   - string: lowercase hexadecimal representation of the SHA256 hash (64 characters)
//   - error: if file cannot be opened or read
//
// This is a pure function with deterministic output for any given file contents.
func ComputeSHA256(filepath string) (string, error) {
	if filepath == "" {
		return "", fmt.Errorf("filepath cannot be empty")
	}

	file, err := os.Open(filepath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %q: %w", filepath, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file %q: %w", filepath, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ComputeSHA256FromReader computes the SHA256 hash from an io.Reader.
// Useful for hashing uploaded content without needing a file on disk.
func ComputeSHA256FromReader(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader cannot be nil")
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ComputeSHA256FromBytes computes the SHA256 hash of a byte slice.
func ComputeSHA256FromBytes(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// DocumentID derives a stable document identifier from file contents.
// The identifier is the first 16 hex characters of the file's SHA256 digest,
// so the same bytes always map to the same document regardless of filename.
//
// Returns an error if the file cannot be read.
func DocumentID(path string) (string, error) {
	sum, err := ComputeSHA256(path)
	if err != nil {
		return "", err
	}
	return sum[:DocumentIDLength], nil
}

// DocumentIDFromBytes derives a document identifier from in-memory content.
// Equivalent to DocumentID for a file holding the same bytes.
func DocumentIDFromBytes(data []byte) string {
	return ComputeSHA256FromBytes(data)[:DocumentIDLength]
}

// ChunkID builds the stable identifier for one chunk of a document,
// "<doc_hash>_<chunk_index>". Chunk rows in the vector store are keyed by
// this value, so the format must not change once documents are indexed.
func ChunkID(docHash string, chunkIndex int) string {
	return fmt.Sprintf("%s_%d", docHash, chunkIndex)
}
