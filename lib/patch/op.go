package patch

import "encoding/json"

// Kind enumerates the supported operations, the wire names follow the
// usual JSON patch vocabulary.
type Kind string

const (
	Add     Kind = "add"
	Remove  Kind = "remove"
	Replace Kind = "replace"
	Move    Kind = "move"
	Copy    Kind = "copy"
	Test    Kind = "test"
)

// Op is a single operation against a document. Path and From are
// pointers in the "/a/b/0" form, "~0" and "~1" escape "~" and "/"
// inside a token.
type Op struct {
	Kind  Kind
	Path  string
	From  string
	Value any
}

type Patch []Op

type wireOp struct {
	Kind  Kind            `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON writes only the fields the operation actually carries.
// Values are kept even when they are false, zero or null, a plain
// omitempty tag would silently drop those and corrupt the history.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Kind: o.Kind, Path: o.Path}
	switch o.Kind {
	case Add, Replace, Test:
		encoded, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		w.Value = encoded
	case Move, Copy:
		w.From = o.From
	}
	return json.Marshal(w)
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.Kind = w.Kind
	o.Path = w.Path
	o.From = w.From
	o.Value = nil
	if len(w.Value) > 0 {
		return json.Unmarshal(w.Value, &o.Value)
	}
	return nil
}
