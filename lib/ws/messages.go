package ws

import "github.com/ether/revlog/lib/patch"

// RoomId names the change stream of one record. Clients join the room to
// receive every version appended to that record.
func RoomId(collection string, recordId string) string {
	return collection + "/" + recordId
}

// SubscribeMessage moves a client into the stream of another record.
type SubscribeMessage struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	RecordId   string `json:"recordId"`
}

// ChangeSetAppendedMessage is pushed when a save appended a new version.
type ChangeSetAppendedMessage struct {
	Type       string      `json:"type"`
	Collection string      `json:"collection"`
	RecordId   string      `json:"recordId"`
	Version    int         `json:"version"`
	CreatedAt  *int64      `json:"createdAt,omitempty"`
	Operations patch.Patch `json:"operations"`
	Metadata   any         `json:"metadata,omitempty"`
}

// RecordRolledBackMessage is pushed when a rollback removed the newest
// version. Deleted is set when the record itself is gone.
type RecordRolledBackMessage struct {
	Type           string `json:"type"`
	Collection     string `json:"collection"`
	RecordId       string `json:"recordId"`
	RemovedVersion int    `json:"removedVersion"`
	NewVersion     *int   `json:"newVersion,omitempty"`
	Deleted        bool   `json:"deleted"`
}
