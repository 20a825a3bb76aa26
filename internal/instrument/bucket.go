package instrument

import "fmt"

// Tier is a named severity level.
type Tier string

const (
	TierMinimal          Tier = "Mínima"
	TierMild             Tier = "Leve"
	TierModerate         Tier = "Moderada"
	TierModeratelySevere Tier = "Moderadamente grave"
	TierSevere           Tier = "Grave"
)

// severityRank orders tiers from least to most severe.
var severityRank = map[Tier]int{
	TierMinimal:          0,
	TierMild:             1,
	TierModerate:         2,
	TierModeratelySevere: 3,
	TierSevere:           4,
}

// Rank returns the position of t in the severity ordering, or -1 if unknown.
func (t Tier) Rank() int {
	if r, ok := severityRank[t]; ok {
		return r
	}
	return -1
}

// MoreSevere returns whichever of a and b ranks higher. Ties return a.
func MoreSevere(a, b Tier) Tier {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Range is a closed-open score interval [Min, Max) mapped to a tier.
type Range struct {
	Min  int
	Max  int
	Tier Tier
}

// BucketTable is an ordered list of non-overlapping ranges.
type BucketTable []Range

// Bucket returns the tier whose range contains score.
func Bucket(score int, table BucketTable) (Tier, error) {
	for _, r := range table {
		if score >= r.Min && score < r.Max {
			return r.Tier, nil
		}
	}
	return "", fmt.Errorf("%w: score %d outside every bucket", ErrValidation, score)
}
