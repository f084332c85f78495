package vectorstore

import (
	"math"
	"testing"
)

func TestEncodeDecodeEmbedding_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{name: "Simple", vec: []float32{1, 0, -1}},
		{name: "Fractional", vec: []float32{0.25, -0.5, 0.125, 3.75}},
		{name: "TinyValues", vec: []float32{1e-30, -1e-30}},
		{name: "SingleValue", vec: []float32{42.5}},
		{name: "Empty", vec: []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := encodeEmbedding(tt.vec)
			if len(blob) != 4*len(tt.vec) {
				t.Fatalf("len(blob) = %d, want %d", len(blob), 4*len(tt.vec))
			}

			got, err := decodeEmbedding(blob)
			if err != nil {
				t.Fatalf("decodeEmbedding() returned error: %v", err)
			}
			if len(got) != len(tt.vec) {
				t.Fatalf("len(got) = %d, want %d", len(got), len(tt.vec))
			}
			for i := range tt.vec {
				if got[i] != tt.vec[i] {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.vec[i])
				}
			}
		})
	}
}

func TestDecodeEmbedding_InvalidLength(t *testing.T) {
	_, err := decodeEmbedding([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Error("decodeEmbedding() with 3 bytes should return error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "Identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "Orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "Opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "ScaledSameDirection", a: []float32{2, 0}, b: []float32{0.5, 0}, want: 1},
		{name: "PartialOverlap", a: []float32{1, 0}, b: []float32{0.6, 0.8}, want: 0.6},
		{name: "ZeroVector", a: []float32{0, 0}, b: []float32{1, 2}, want: 0},
		{name: "LengthMismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "BothEmpty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
