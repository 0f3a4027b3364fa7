package patch

import (
	"reflect"
	"slices"
	"strconv"
)

// Diff computes the operations that turn before into after. The walk is
// deterministic so the same pair of documents always yields the same
// patch: within an object removals come first in descending key order,
// then updates and additions in ascending key order. Two equal
// documents yield an empty, non nil patch.
func Diff(before map[string]any, after map[string]any) Patch {
	ops := diffObject("", before, after)
	if ops == nil {
		ops = Patch{}
	}
	return ops
}

func diffObject(path string, before map[string]any, after map[string]any) Patch {
	var ops Patch

	removed := make([]string, 0)
	for key := range before {
		if _, kept := after[key]; !kept {
			removed = append(removed, key)
		}
	}
	slices.Sort(removed)
	slices.Reverse(removed)
	for _, key := range removed {
		ops = append(ops, Op{Kind: Remove, Path: appendToken(path, key)})
	}

	common := make([]string, 0)
	added := make([]string, 0)
	for key := range after {
		if _, existed := before[key]; existed {
			common = append(common, key)
		} else {
			added = append(added, key)
		}
	}
	slices.Sort(common)
	for _, key := range common {
		ops = append(ops, diffValue(appendToken(path, key), before[key], after[key])...)
	}
	slices.Sort(added)
	for _, key := range added {
		ops = append(ops, Op{Kind: Add, Path: appendToken(path, key), Value: after[key]})
	}
	return ops
}

func diffValue(path string, before any, after any) Patch {
	if beforeObject, ok := before.(map[string]any); ok {
		if afterObject, ok := after.(map[string]any); ok {
			return diffObject(path, beforeObject, afterObject)
		}
	}
	if beforeArray, ok := before.([]any); ok {
		if afterArray, ok := after.([]any); ok {
			return diffArray(path, beforeArray, afterArray)
		}
	}
	if reflect.DeepEqual(before, after) {
		return nil
	}
	return Patch{{Kind: Replace, Path: path, Value: after}}
}

// diffArray recurses into the shared indexes, then removes a shrinking
// tail back to front so the indexes of the remaining removals stay
// valid during application, then appends a growing tail in order.
func diffArray(path string, before []any, after []any) Patch {
	var ops Patch
	shared := min(len(before), len(after))
	for i := 0; i < shared; i++ {
		ops = append(ops, diffValue(appendToken(path, strconv.Itoa(i)), before[i], after[i])...)
	}
	for i := len(before) - 1; i >= shared; i-- {
		ops = append(ops, Op{Kind: Remove, Path: appendToken(path, strconv.Itoa(i))})
	}
	for i := shared; i < len(after); i++ {
		ops = append(ops, Op{Kind: Add, Path: appendToken(path, strconv.Itoa(i)), Value: after[i]})
	}
	return ops
}
