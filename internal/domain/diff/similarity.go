package diff

import (
	"encoding/json"
	"reflect"
)

// similarity is a normalized text-similarity ratio in [0,1]:
// 2*LCS(a,b) / (len(a)+len(b)), rounded to two decimals. Quadratic, which is
// fine at section-body sizes; annotation only, never a gate.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]

	ratio := 2 * float64(lcs) / float64(len(ra)+len(rb))
	return float64(int(ratio*100+0.5)) / 100
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// valuesEqual compares arbitrary JSON values. DeepEqual handles decoded JSON
// directly; the marshal fallback covers mixed Go-native inputs (e.g. an int
// in one document and a float64 from decoding in the other).
func valuesEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}
