// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConsensusLevel buckets a consensus score. Levels are ordered
// low < mixed < emerging < high.
type ConsensusLevel string

const (
	ConsensusLow      ConsensusLevel = "low"
	ConsensusMixed    ConsensusLevel = "mixed"
	ConsensusEmerging ConsensusLevel = "emerging"
	ConsensusHigh     ConsensusLevel = "high"
)

// Ordinal returns the position of the level in the ordering, or -1 for an
// unknown value.
func (l ConsensusLevel) Ordinal() int {
	switch l {
	case ConsensusLow:
		return 0
	case ConsensusMixed:
		return 1
	case ConsensusEmerging:
		return 2
	case ConsensusHigh:
		return 3
	default:
		return -1
	}
}

// ConsensusResult estimates how strongly the retrieved evidence agrees.
type ConsensusResult struct {
	// Score is in [0, 1].
	Score float64 `json:"score" yaml:"score"`

	Level ConsensusLevel `json:"level" yaml:"level"`

	// Rationale reports the intermediate signals. Diagnostic only.
	Rationale string `json:"rationale" yaml:"rationale"`
}
