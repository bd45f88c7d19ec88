package database

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
)

// encodeVector packs v as little-endian float32 (the F32_BLOB layout). Nil
// vectors encode to nil so the column stays NULL.
func encodeVector(v apptype.FeatureVector) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		f := float32(x)
		if math.IsNaN(x) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("%w: vector value %v at index %d is not a finite float32", connstore.ErrInvalidInput, x, i)
		}
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

// decodeVector extracts a vector from binary format (F32_BLOB)
func decodeVector(blob []byte) (apptype.FeatureVector, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob: %d bytes is not a multiple of 4", len(blob))
	}
	v := make(apptype.FeatureVector, len(blob)/4)
	for i := range v {
		bits := binary.LittleEndian.Uint32(blob[i*4 : (i+1)*4])
		v[i] = float64(math.Float32frombits(bits))
	}
	return v, nil
}
