package patch

import (
	"errors"
	"strconv"
	"strings"
)

// splitPointer parses a pointer into its unescaped tokens. The empty
// pointer addresses the document root.
func splitPointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, errors.New("pointer does not start with '/'")
	}
	tokens := strings.Split(path[1:], "/")
	for i, token := range tokens {
		tokens[i] = unescapeToken(token)
	}
	return tokens, nil
}

func appendToken(path string, token string) string {
	return path + "/" + escapeToken(token)
}

func escapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func unescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// insertIndex resolves an array token for add and replace, "-" and the
// current length both mean append.
func insertIndex(token string, length int) (int, error) {
	if token == "-" {
		return length, nil
	}
	index, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.New("'" + token + "' is not an array index")
	}
	if index < 0 || index > length {
		return 0, errors.New("index " + token + " is out of bounds")
	}
	return index, nil
}

// elementIndex resolves an array token for read and remove, anything
// outside the existing elements reports false.
func elementIndex(token string, length int) (int, bool) {
	index, err := strconv.Atoi(token)
	if err != nil || index < 0 || index >= length {
		return 0, false
	}
	return index, true
}
