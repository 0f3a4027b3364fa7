package db

import (
	"slices"
	"testing"

	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runDataStoreTests exercises the DataStore contract, every backend has
// to pass the same suite.
func runDataStoreTests(t *testing.T, store DataStore) {
	t.Run("GetMissingRecord", func(t *testing.T) {
		_, err := store.GetRecord("posts", "does-not-exist")
		assert.EqualError(t, err, RecordDoesNotExistError)
	})

	t.Run("SaveAndGetRecord", func(t *testing.T) {
		rec := CreateRandomRecord()
		require.NoError(t, store.SaveRecord("posts", rec))

		loaded, err := store.GetRecord("posts", rec.Id)
		require.NoError(t, err)
		assert.Equal(t, rec, *loaded)
	})

	t.Run("SaveLegacyRecordWithoutVersion", func(t *testing.T) {
		rec := CreateRandomRecord()
		rec.Version = nil
		rec.VersionDate = nil
		require.NoError(t, store.SaveRecord("posts", rec))

		loaded, err := store.GetRecord("posts", rec.Id)
		require.NoError(t, err)
		assert.Nil(t, loaded.Version)
		assert.Nil(t, loaded.VersionDate)
		assert.Equal(t, rec.Doc, loaded.Doc)
	})

	t.Run("SaveOverwritesExistingRecord", func(t *testing.T) {
		rec := CreateRandomRecord()
		require.NoError(t, store.SaveRecord("posts", rec))

		updatedVersion := *rec.Version + 1
		rec.Version = &updatedVersion
		rec.Doc["name"] = "renamed"
		require.NoError(t, store.SaveRecord("posts", rec))

		loaded, err := store.GetRecord("posts", rec.Id)
		require.NoError(t, err)
		assert.Equal(t, updatedVersion, *loaded.Version)
		assert.Equal(t, "renamed", loaded.Doc["name"])
	})

	t.Run("RemoveRecord", func(t *testing.T) {
		rec := CreateRandomRecord()
		require.NoError(t, store.SaveRecord("posts", rec))
		require.NoError(t, store.RemoveRecord("posts", rec.Id))

		_, err := store.GetRecord("posts", rec.Id)
		assert.EqualError(t, err, RecordDoesNotExistError)

		err = store.RemoveRecord("posts", rec.Id)
		assert.EqualError(t, err, RecordDoesNotExistError)
	})

	t.Run("RecordsAreScopedToCollection", func(t *testing.T) {
		rec := CreateRandomRecord()
		require.NoError(t, store.SaveRecord("articles", rec))

		_, err := store.GetRecord("comments", rec.Id)
		assert.EqualError(t, err, RecordDoesNotExistError)
	})

	t.Run("GetRecordIds", func(t *testing.T) {
		ids, err := store.GetRecordIds("empty-collection")
		require.NoError(t, err)
		assert.Len(t, ids, 0)

		inserted := make([]string, 0)
		for i := 0; i < 3; i++ {
			rec := CreateRandomRecord()
			require.NoError(t, store.SaveRecord("listable", rec))
			inserted = append(inserted, rec.Id)
		}
		slices.Sort(inserted)

		ids, err = store.GetRecordIds("listable")
		require.NoError(t, err)
		assert.Equal(t, inserted, ids)
	})

	t.Run("AppendAndGetChangeSets", func(t *testing.T) {
		logId := "posts_versions"
		parentId := "r-ordered"
		for _, version := range []int{2, 1, 3} {
			require.NoError(t, store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, version)))
		}

		changeSets, err := store.GetChangeSets(logId, parentId, nil)
		require.NoError(t, err)
		require.Len(t, changeSets, 3)
		for i, cs := range changeSets {
			assert.Equal(t, i+1, cs.Version)
			assert.Equal(t, parentId, cs.ParentId)
		}
	})

	t.Run("ChangeSetOrderingWithMultiDigitVersions", func(t *testing.T) {
		logId := "posts_versions"
		parentId := "r-multidigit"
		for _, version := range []int{10, 2, 12, 1, 11, 3} {
			require.NoError(t, store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, version)))
		}

		changeSets, err := store.GetChangeSets(logId, parentId, nil)
		require.NoError(t, err)
		versions := make([]int, 0)
		for _, cs := range changeSets {
			versions = append(versions, cs.Version)
		}
		assert.Equal(t, []int{1, 2, 3, 10, 11, 12}, versions)
	})

	t.Run("GetChangeSetsHonorsMaxVersion", func(t *testing.T) {
		logId := "posts_versions"
		parentId := "r-bounded"
		for version := 1; version <= 5; version++ {
			require.NoError(t, store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, version)))
		}

		maxVersion := 3
		changeSets, err := store.GetChangeSets(logId, parentId, &maxVersion)
		require.NoError(t, err)
		require.Len(t, changeSets, 3)
		assert.Equal(t, 3, changeSets[2].Version)
	})

	t.Run("GetChangeSetsForUnknownParentIsEmpty", func(t *testing.T) {
		changeSets, err := store.GetChangeSets("posts_versions", "never-written", nil)
		require.NoError(t, err)
		assert.Len(t, changeSets, 0)
	})

	t.Run("AppendDuplicateVersionIsRejected", func(t *testing.T) {
		logId := "posts_versions"
		parentId := "r-conflict"
		require.NoError(t, store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, 1)))

		err := store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, 1))
		assert.EqualError(t, err, VersionAlreadyExistsError)

		count, err := store.CountChangeSets(logId, parentId)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("ChangeSetRoundTripKeepsAllFields", func(t *testing.T) {
		logId := "posts_versions"
		cs := CreateRandomChangeSet("r-roundtrip", 1)
		require.NoError(t, store.AppendChangeSet(logId, cs))

		changeSets, err := store.GetChangeSets(logId, cs.ParentId, nil)
		require.NoError(t, err)
		require.Len(t, changeSets, 1)
		assert.Equal(t, cs.Operations, changeSets[0].Operations)
		assert.Equal(t, cs.Metadata, changeSets[0].Metadata)
		assert.Equal(t, *cs.CreatedAt, *changeSets[0].CreatedAt)
	})

	t.Run("ChangeSetWithoutMetadataOrDate", func(t *testing.T) {
		logId := "posts_versions"
		cs := record.ChangeSet{
			ParentId:   "r-bare",
			Version:    1,
			Operations: patch.Patch{{Kind: patch.Add, Path: "/v", Value: 1.0}},
		}
		require.NoError(t, store.AppendChangeSet(logId, cs))

		changeSets, err := store.GetChangeSets(logId, cs.ParentId, nil)
		require.NoError(t, err)
		require.Len(t, changeSets, 1)
		assert.Nil(t, changeSets[0].Metadata)
		assert.Nil(t, changeSets[0].CreatedAt)
	})

	t.Run("EmptyOperationsRoundTrip", func(t *testing.T) {
		logId := "posts_versions"
		cs := CreateRandomChangeSet("r-empty-ops", 1)
		cs.Operations = patch.Patch{}
		require.NoError(t, store.AppendChangeSet(logId, cs))

		changeSets, err := store.GetChangeSets(logId, cs.ParentId, nil)
		require.NoError(t, err)
		require.Len(t, changeSets, 1)
		assert.NotNil(t, changeSets[0].Operations)
		assert.Len(t, changeSets[0].Operations, 0)
	})

	t.Run("RemoveChangeSet", func(t *testing.T) {
		logId := "posts_versions"
		parentId := "r-remove"
		require.NoError(t, store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, 1)))
		require.NoError(t, store.AppendChangeSet(logId, CreateRandomChangeSet(parentId, 2)))

		require.NoError(t, store.RemoveChangeSet(logId, parentId, 2))

		changeSets, err := store.GetChangeSets(logId, parentId, nil)
		require.NoError(t, err)
		require.Len(t, changeSets, 1)
		assert.Equal(t, 1, changeSets[0].Version)

		err = store.RemoveChangeSet(logId, parentId, 2)
		assert.EqualError(t, err, ChangeSetDoesNotExistError)
	})

	t.Run("ChangeSetsAreScopedToLog", func(t *testing.T) {
		parentId := "r-scoped"
		require.NoError(t, store.AppendChangeSet("posts_versions", CreateRandomChangeSet(parentId, 1)))

		changeSets, err := store.GetChangeSets("comments_versions", parentId, nil)
		require.NoError(t, err)
		assert.Len(t, changeSets, 0)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping())
	})
}
