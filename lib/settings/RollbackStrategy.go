package settings

import (
	"fmt"
	"strings"
)

// RollbackStrategy selects how the previous document is rebuilt when a
// rollback discards a record's latest version. "patch" reapplies the stored
// change set of the version being restored onto the live document and reads
// a single change set; fields the change set never mentions keep whatever
// value the discarded version gave them. "replay" rebuilds the previous
// snapshot from the full change-set history and is exact at the cost of
// reading every change set of the record.
type RollbackStrategy string

const (
	RollbackPatch  RollbackStrategy = "patch"
	RollbackReplay RollbackStrategy = "replay"
)

func ParseRollbackStrategy(s string) (RollbackStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patch":
		return RollbackPatch, nil
	case "replay":
		return RollbackReplay, nil
	default:
		return "", fmt.Errorf("unknown rollback strategy: %q", s)
	}
}

func (strategy RollbackStrategy) String() string {
	return string(strategy)
}
