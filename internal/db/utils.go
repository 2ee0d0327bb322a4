package db

import (
	"fmt"
	"strconv"
)

// ParseRunID parses a run id argument.
func ParseRunID(arg string) (int64, error) {
	runID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || runID < 1 {
		return 0, fmt.Errorf("invalid run ID: %s", arg)
	}
	return runID, nil
}
