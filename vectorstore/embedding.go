// Package vectorstore persists processed documents and their chunk
// embeddings in SQLite and serves similarity queries for the jandocs
// document scheduler.
//
// embedding.go implements the embedding atoms: the little-endian float32
// BLOB codec used for storage and the cosine similarity scoring function.
package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeEmbedding serializes a vector as little-endian float32 bytes for
// BLOB storage.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding deserializes a little-endian float32 BLOB back into a
// vector. The blob length must be a multiple of 4.
func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(data))
	}

	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// in [-1, 1] with 1 meaning identical direction. Mismatched lengths and
// zero vectors score 0.
//
// Example:
//
//	score := vectorstore.CosineSimilarity(queryVec, chunkVec)
//	// score close to 1.0 means the chunk is highly relevant
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
