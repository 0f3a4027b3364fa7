package db

import (
	"github.com/brianvoe/gofakeit/v7"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
)

func CreateRandomRecord() record.Record {
	version := gofakeit.Number(1, 20)
	versionDate := gofakeit.Date().UnixMilli()
	id := gofakeit.UUID()
	return record.Record{
		Id:          id,
		Version:     &version,
		VersionDate: &versionDate,
		Doc: record.Document{
			"id":     id,
			"name":   gofakeit.Name(),
			"email":  gofakeit.Email(),
			"active": gofakeit.Bool(),
		},
	}
}

func CreateRandomChangeSet(parentId string, version int) record.ChangeSet {
	createdAt := gofakeit.Date().UnixMilli()
	return record.ChangeSet{
		ParentId: parentId,
		Version:  version,
		Operations: patch.Patch{
			{Kind: patch.Add, Path: "/name", Value: gofakeit.Name()},
			{Kind: patch.Replace, Path: "/email", Value: gofakeit.Email()},
		},
		Metadata:  map[string]any{"updatedBy": gofakeit.Username()},
		CreatedAt: &createdAt,
	}
}
