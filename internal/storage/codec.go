package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serializes a float64 vector to little-endian bytes, 8 bytes
// per component. Shared by the SQL backends so their on-disk layouts stay
// interchangeable.
func EncodeVector(vector []float64) []byte {
	buf := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeVector deserializes little-endian bytes back to a float64 vector.
// dim validates the buffer size.
func DecodeVector(buf []byte, dim int) ([]float64, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension: %d", dim)
	}

	if len(buf) != dim*8 {
		return nil, fmt.Errorf("vector buffer size mismatch: expected %d bytes, got %d", dim*8, len(buf))
	}

	vector := make([]float64, dim)
	for i := 0; i < dim; i++ {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}

	return vector, nil
}
