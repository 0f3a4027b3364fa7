package patch

import (
	"reflect"
	"strings"

	"github.com/ether/revlog/lib/exception"
)

// Apply runs ops against base and returns the result, base itself is
// never mutated. Add and replace behave as upserts and create missing
// intermediate containers on the way to their target, removing a path
// that is already gone is a no-op. Move, copy and test are strict and
// fail with an ApplyError when their source or expectation does not
// hold.
func Apply(base map[string]any, ops Patch) (map[string]any, error) {
	var root any = cloneAny(base)
	if root == nil {
		root = map[string]any{}
	}
	for _, op := range ops {
		applied, err := applyOp(root, op)
		if err != nil {
			return nil, err
		}
		root = applied
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, exception.NewApplyError("patch", "", "document root is not an object")
	}
	return doc, nil
}

// Compose flattens patches into a single patch by concatenating them in
// the given order. Applying the result once is equivalent to applying
// the inputs sequentially.
func Compose(patches []Patch) Patch {
	composed := make(Patch, 0)
	for _, p := range patches {
		composed = append(composed, p...)
	}
	return composed
}

func applyOp(root any, op Op) (any, error) {
	tokens, err := splitPointer(op.Path)
	if err != nil {
		return nil, exception.NewApplyError(string(op.Kind), op.Path, err.Error())
	}

	switch op.Kind {
	case Add:
		return setValue(root, op, tokens, cloneAny(op.Value), true)
	case Replace:
		return setValue(root, op, tokens, cloneAny(op.Value), false)
	case Remove:
		pruned, _ := removeValue(root, tokens)
		return pruned, nil
	case Move:
		fromTokens, err := splitPointer(op.From)
		if err != nil {
			return nil, exception.NewApplyError(string(op.Kind), op.From, err.Error())
		}
		if op.From != "" && strings.HasPrefix(op.Path, op.From+"/") {
			return nil, exception.NewApplyError(string(op.Kind), op.Path, "cannot move a value into its own child")
		}
		value, found := getValue(root, fromTokens)
		if !found {
			return nil, exception.NewApplyError(string(op.Kind), op.From, "source path does not exist")
		}
		detached, _ := removeValue(root, fromTokens)
		return setValue(detached, op, tokens, value, true)
	case Copy:
		fromTokens, err := splitPointer(op.From)
		if err != nil {
			return nil, exception.NewApplyError(string(op.Kind), op.From, err.Error())
		}
		value, found := getValue(root, fromTokens)
		if !found {
			return nil, exception.NewApplyError(string(op.Kind), op.From, "source path does not exist")
		}
		return setValue(root, op, tokens, cloneAny(value), true)
	case Test:
		value, found := getValue(root, tokens)
		if !found {
			return nil, exception.NewApplyError(string(op.Kind), op.Path, "path does not exist")
		}
		if !reflect.DeepEqual(value, op.Value) {
			return nil, exception.NewApplyError(string(op.Kind), op.Path, "value does not match")
		}
		return root, nil
	default:
		return nil, exception.NewApplyError(string(op.Kind), op.Path, "unknown operation")
	}
}

// setValue writes value at the token path and returns the possibly
// reallocated node. A scalar in the way of a deeper write is replaced
// by a fresh container, which container kind to create is decided by
// the next token.
func setValue(node any, op Op, tokens []string, value any, insert bool) (any, error) {
	if len(tokens) == 0 {
		if _, ok := value.(map[string]any); !ok {
			return nil, exception.NewApplyError(string(op.Kind), op.Path, "document root must be an object")
		}
		return value, nil
	}
	token := tokens[0]
	rest := tokens[1:]

	switch parent := node.(type) {
	case map[string]any:
		if len(rest) == 0 {
			parent[token] = value
			return parent, nil
		}
		child, exists := parent[token]
		if !exists || child == nil {
			child = emptyContainerFor(rest[0])
		}
		updated, err := setValue(child, op, rest, value, insert)
		if err != nil {
			return nil, err
		}
		parent[token] = updated
		return parent, nil
	case []any:
		index, err := insertIndex(token, len(parent))
		if err != nil {
			return nil, exception.NewApplyError(string(op.Kind), op.Path, err.Error())
		}
		if len(rest) == 0 {
			if index == len(parent) {
				return append(parent, value), nil
			}
			if insert {
				parent = append(parent, nil)
				copy(parent[index+1:], parent[index:])
			}
			parent[index] = value
			return parent, nil
		}
		if index == len(parent) {
			parent = append(parent, emptyContainerFor(rest[0]))
		}
		updated, err := setValue(parent[index], op, rest, value, insert)
		if err != nil {
			return nil, err
		}
		parent[index] = updated
		return parent, nil
	default:
		return setValue(emptyContainerFor(token), op, tokens, value, insert)
	}
}

// removeValue deletes the token path and reports whether anything was
// actually removed. Missing segments never error, an old change set may
// remove a path a later schema no longer has.
func removeValue(node any, tokens []string) (any, bool) {
	if len(tokens) == 0 {
		return map[string]any{}, true
	}
	token := tokens[0]
	rest := tokens[1:]

	switch parent := node.(type) {
	case map[string]any:
		child, exists := parent[token]
		if !exists {
			return parent, false
		}
		if len(rest) == 0 {
			delete(parent, token)
			return parent, true
		}
		updated, removed := removeValue(child, rest)
		if removed {
			parent[token] = updated
		}
		return parent, removed
	case []any:
		index, ok := elementIndex(token, len(parent))
		if !ok {
			return parent, false
		}
		if len(rest) == 0 {
			return append(parent[:index], parent[index+1:]...), true
		}
		updated, removed := removeValue(parent[index], rest)
		if removed {
			parent[index] = updated
		}
		return parent, removed
	default:
		return node, false
	}
}

func getValue(node any, tokens []string) (any, bool) {
	if len(tokens) == 0 {
		return node, true
	}
	token := tokens[0]
	switch parent := node.(type) {
	case map[string]any:
		child, exists := parent[token]
		if !exists {
			return nil, false
		}
		return getValue(child, tokens[1:])
	case []any:
		index, ok := elementIndex(token, len(parent))
		if !ok {
			return nil, false
		}
		return getValue(parent[index], tokens[1:])
	default:
		return nil, false
	}
}

func emptyContainerFor(token string) any {
	if _, err := insertIndex(token, 0); err == nil {
		return []any{}
	}
	return map[string]any{}
}

func cloneAny(value any) any {
	switch v := value.(type) {
	case map[string]any:
		cloned := make(map[string]any, len(v))
		for key, child := range v {
			cloned[key] = cloneAny(child)
		}
		return cloned
	case []any:
		cloned := make([]any, len(v))
		for i, child := range v {
			cloned[i] = cloneAny(child)
		}
		return cloned
	default:
		return value
	}
}
