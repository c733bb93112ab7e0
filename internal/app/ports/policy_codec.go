package ports

import (
	"encoding/json"
	"math"
)

// DecodeEntries decodes a stored Q-table one entry at a time. An entry
// whose value is not a list of finite numbers is dropped and counted;
// key and length checks are left to the importer.
func DecodeEntries(raw map[string]json.RawMessage) (map[string][]float64, int) {
	out := make(map[string][]float64, len(raw))
	dropped := 0
	for key, msg := range raw {
		var vals []*float64
		if err := json.Unmarshal(msg, &vals); err != nil || vals == nil {
			dropped++
			continue
		}
		vec := make([]float64, 0, len(vals))
		for _, v := range vals {
			if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
				vec = nil
				break
			}
			vec = append(vec, *v)
		}
		if vec == nil {
			dropped++
			continue
		}
		out[key] = vec
	}
	return out, dropped
}
