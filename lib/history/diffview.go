package history

import (
	"encoding/json"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ether/revlog/lib/models/record"
)

// RenderTextDiff renders the change between two documents as a text patch
// over their pretty printed JSON. Meant for humans reading a history view,
// the structural patch.Diff stays the machine format.
func RenderTextDiff(before record.Document, after record.Document) (string, error) {
	beforeJSON, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling document: %w", err)
	}
	afterJSON, err := json.MarshalIndent(after, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling document: %w", err)
	}

	var dmp = diffmatchpatch.New()
	var patches = dmp.PatchMake(string(beforeJSON), string(afterJSON))
	return dmp.PatchToText(patches), nil
}
