package models

import (
	"fmt"
	"strconv"
)

// Rank is a claim quality marker. Lower values win ties.
type Rank int

const (
	RankPreferred  Rank = 0
	RankNormal     Rank = 1
	RankDeprecated Rank = 2
)

// ParseRank converts the dump's rank string into a Rank.
func ParseRank(s string) (Rank, error) {
	switch s {
	case "preferred":
		return RankPreferred, nil
	case "normal":
		return RankNormal, nil
	case "deprecated":
		return RankDeprecated, nil
	}
	return 0, fmt.Errorf("unknown claim rank %q", s)
}

func (r Rank) String() string {
	switch r {
	case RankPreferred:
		return "preferred"
	case RankNormal:
		return "normal"
	case RankDeprecated:
		return "deprecated"
	}
	return fmt.Sprintf("rank(%d)", int(r))
}

// ClaimEdge is a subclass-of or instance-of edge between two numeric item ids.
type ClaimEdge struct {
	SourceID int64
	TargetID int64
	Rank     Rank
}

// ParseEntityID converts an entity id such as "Q42" or "P31" to its number.
func ParseEntityID(id string) (int64, error) {
	if len(id) < 2 || (id[0] != 'Q' && id[0] != 'P') {
		return 0, fmt.Errorf("invalid entity id %q", id)
	}
	n, err := strconv.ParseInt(id[1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity id %q: %w", id, err)
	}
	return n, nil
}
