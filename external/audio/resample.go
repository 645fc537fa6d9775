package audio

import (
	"encoding/binary"
	"fmt"
)

// decimationFactor returns how many source samples collapse into one output
// sample. Only integer ratios are supported.
func decimationFactor(sourceRate, targetRate int) (int, error) {
	if sourceRate <= 0 || targetRate <= 0 {
		return 0, fmt.Errorf("invalid sample rates %d -> %d", sourceRate, targetRate)
	}
	if targetRate > sourceRate || sourceRate%targetRate != 0 {
		return 0, fmt.Errorf("unsupported resample ratio %d -> %d", sourceRate, targetRate)
	}
	return sourceRate / targetRate, nil
}

// decimatePCM16 averages each group of factor samples and encodes the result
// as little-endian PCM16. A trailing partial group is dropped.
func decimatePCM16(samples []int16, factor int) []byte {
	if factor <= 0 {
		return nil
	}
	n := len(samples) / factor
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		var sum int32
		for _, s := range samples[i*factor : (i+1)*factor] {
			sum += int32(s)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/int32(factor))))
	}
	return out
}
