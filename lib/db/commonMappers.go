package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ether/revlog/lib/models/record"
)

type Reader interface {
	Scan(dest ...any) error
}

func ReadToRecord(reader Reader) (*record.Record, error) {
	var rec record.Record
	var version, versionDate sql.NullInt64
	var doc string

	if err := reader.Scan(&rec.Id, &version, &versionDate, &doc); err != nil {
		return nil, err
	}

	if version.Valid {
		v := int(version.Int64)
		rec.Version = &v
	}
	if versionDate.Valid {
		rec.VersionDate = &versionDate.Int64
	}
	if err := json.Unmarshal([]byte(doc), &rec.Doc); err != nil {
		return nil, fmt.Errorf("error unmarshaling doc: %w", err)
	}
	return &rec, nil
}

func ReadToChangeSet(reader Reader) (*record.ChangeSet, error) {
	var cs record.ChangeSet
	var operations string
	var metadata sql.NullString
	var createdAt sql.NullInt64

	if err := reader.Scan(&cs.ParentId, &cs.Version, &operations, &metadata, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(operations), &cs.Operations); err != nil {
		return nil, fmt.Errorf("error unmarshaling operations: %w", err)
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &cs.Metadata); err != nil {
			return nil, fmt.Errorf("error unmarshaling metadata: %w", err)
		}
	}
	if createdAt.Valid {
		cs.CreatedAt = &createdAt.Int64
	}
	return &cs, nil
}

// changeSetColumns marshals the JSON columns of a change set, metadata
// stays a NULL column when it was never provided.
func changeSetColumns(cs record.ChangeSet) (string, *string, error) {
	operations, err := json.Marshal(cs.Operations)
	if err != nil {
		return "", nil, fmt.Errorf("error marshaling operations: %w", err)
	}

	var metadata *string
	if cs.Metadata != nil {
		encoded, err := json.Marshal(cs.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("error marshaling metadata: %w", err)
		}
		asString := string(encoded)
		metadata = &asString
	}
	return string(operations), metadata, nil
}
