package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/exception"
	"github.com/ether/revlog/lib/hooks/events"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
)

func TestSaveNewRecordCreatesVersionOne(t *testing.T) {
	log, store, _ := newTestLog("posts", newTestSettings())

	doc := record.Document{"name": "first post", "views": 3}
	rec, err := log.Save(doc, SaveOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.Id)
	assert.Equal(t, rec.Id, doc["id"], "generated id is written back into the document")
	require.NotNil(t, rec.Version)
	assert.Equal(t, 1, *rec.Version)
	require.NotNil(t, rec.VersionDate)

	stored, err := store.GetRecord("posts", rec.Id)
	require.NoError(t, err)
	assert.Equal(t, rec.Doc, stored.Doc)

	changeSets, err := log.ChangeSets(rec.Id)
	require.NoError(t, err)
	require.Len(t, changeSets, 1)
	assert.Equal(t, 1, changeSets[0].Version)

	replayed, err := patch.Apply(record.Document{}, changeSets[0].Operations)
	require.NoError(t, err)
	assert.Equal(t, map[string]any(rec.Doc), replayed)
}

func TestSaveExistingRecordAppendsNextVersion(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	_, err := log.Save(record.Document{"id": "doc-1", "name": "draft"}, SaveOptions{})
	require.NoError(t, err)

	rec, err := log.Save(record.Document{"id": "doc-1", "name": "published", "tags": []any{"go"}}, SaveOptions{})
	require.NoError(t, err)
	require.NotNil(t, rec.Version)
	assert.Equal(t, 2, *rec.Version)

	changeSets, err := log.ChangeSets("doc-1")
	require.NoError(t, err)
	require.Len(t, changeSets, 2)
	assert.Equal(t, 1, changeSets[0].Version)
	assert.Equal(t, 2, changeSets[1].Version)
}

func TestReplayMatchesLiveDocument(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	doc := record.Document(patch.RandomDocument(2))
	rec, err := log.Save(doc, SaveOptions{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		doc = patch.MutateDocument(doc)
		rec, err = log.Save(doc, SaveOptions{})
		require.NoError(t, err)
	}
	require.NotNil(t, rec.Version)
	require.Equal(t, 6, *rec.Version)

	replayed, err := log.GetVersion(rec, *rec.Version)
	require.NoError(t, err)
	assert.Equal(t, rec.Doc, replayed.Doc, "replaying the full log must rebuild the live document")
}

func TestGetVersionReconstructsEachStep(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	steps := []record.Document{
		{"id": "doc-1", "name": "a", "tags": []any{"x"}},
		{"id": "doc-1", "name": "b", "tags": []any{"x", "y"}},
		{"id": "doc-1", "name": "c"},
	}
	var rec *record.Record
	var err error
	for _, step := range steps {
		rec, err = log.Save(step, SaveOptions{})
		require.NoError(t, err)
	}

	for i, step := range steps {
		versioned, err := log.GetVersion(rec, i+1)
		require.NoError(t, err)
		require.NotNil(t, versioned.Version)
		assert.Equal(t, i+1, *versioned.Version)
		assert.NotNil(t, versioned.VersionDate)

		expected, err := record.Normalize(step)
		require.NoError(t, err)
		assert.Equal(t, expected, versioned.Doc)
	}
}

func TestGetVersionRejectsOutOfRange(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	rec, err := log.Save(record.Document{"id": "doc-1", "name": "only"}, SaveOptions{})
	require.NoError(t, err)

	var invalid *exception.InvalidVersionError
	_, err = log.GetVersion(rec, 0)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, invalid.Requested)
	assert.Equal(t, 1, invalid.Current)

	_, err = log.GetVersion(rec, 2)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.Requested)
}

func TestSaveBackfillsLegacyRecord(t *testing.T) {
	log, store, _ := newTestLog("posts", newTestSettings())

	legacy := record.Document{"id": "legacy-1", "name": "old title", "archived": true}
	require.NoError(t, store.SaveRecord("posts", record.Record{Id: "legacy-1", Doc: legacy}))

	rec, err := log.Save(record.Document{"id": "legacy-1", "name": "new title", "archived": false}, SaveOptions{})
	require.NoError(t, err)
	require.NotNil(t, rec.Version)
	assert.Equal(t, 2, *rec.Version, "legacy content becomes version 1, the write version 2")

	changeSets, err := log.ChangeSets("legacy-1")
	require.NoError(t, err)
	require.Len(t, changeSets, 2)
	assert.Nil(t, changeSets[0].CreatedAt, "when the legacy row was written is unknown")
	assert.NotNil(t, changeSets[1].CreatedAt)

	v1, err := log.GetVersion(rec, 1)
	require.NoError(t, err)
	expected, err := record.Normalize(legacy)
	require.NoError(t, err)
	assert.Equal(t, expected, v1.Doc)
}

func TestSaveSurfacesVersionConflict(t *testing.T) {
	log, store, _ := newTestLog("posts", newTestSettings())

	_, err := log.Save(record.Document{"id": "contended", "name": "mine"}, SaveOptions{})
	require.NoError(t, err)

	// Another writer appends version 2 between our read and our append.
	require.NoError(t, store.AppendChangeSet("posts_versions", db.CreateRandomChangeSet("contended", 2)))

	_, err = log.Save(record.Document{"id": "contended", "name": "also mine"}, SaveOptions{})
	var conflict *exception.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "contended", conflict.RecordId)
	assert.Equal(t, 2, conflict.Version)
}

func TestSaveStoresMetadataOnChangeSet(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	rec, err := log.Save(
		record.Document{"name": "annotated"},
		SaveOptions{Metadata: map[string]any{"updatedBy": "alice", "reason": "init"}},
	)
	require.NoError(t, err)

	changeSets, err := log.ChangeSets(rec.Id)
	require.NoError(t, err)
	require.Len(t, changeSets, 1)
	assert.Equal(t, map[string]any{"updatedBy": "alice", "reason": "init"}, changeSets[0].Metadata)
}

func TestSaveNormalizesStructMetadata(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	type auditStamp struct {
		User string `json:"user"`
	}
	rec, err := log.Save(record.Document{"name": "stamped"}, SaveOptions{Metadata: auditStamp{User: "bob"}})
	require.NoError(t, err)

	changeSets, err := log.ChangeSets(rec.Id)
	require.NoError(t, err)
	require.Len(t, changeSets, 1)
	assert.Equal(t, map[string]any{"user": "bob"}, changeSets[0].Metadata)
}

func TestSaveWithoutDateTracking(t *testing.T) {
	testSettings := newTestSettings()
	testSettings.Versions.TrackDates = false
	log, _, _ := newTestLog("posts", testSettings)

	rec, err := log.Save(record.Document{"name": "undated"}, SaveOptions{})
	require.NoError(t, err)
	assert.Nil(t, rec.VersionDate)

	changeSets, err := log.ChangeSets(rec.Id)
	require.NoError(t, err)
	require.Len(t, changeSets, 1)
	assert.Nil(t, changeSets[0].CreatedAt)
}

func TestSaveUnchangedDocumentStillAppends(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	_, err := log.Save(record.Document{"id": "same", "name": "steady"}, SaveOptions{})
	require.NoError(t, err)

	rec, err := log.Save(record.Document{"id": "same", "name": "steady"}, SaveOptions{})
	require.NoError(t, err)
	require.NotNil(t, rec.Version)
	assert.Equal(t, 2, *rec.Version, "saving an identical document still creates a version")

	changeSets, err := log.ChangeSets("same")
	require.NoError(t, err)
	require.Len(t, changeSets, 2)
	assert.Empty(t, changeSets[1].Operations)
}

func TestSuppressVersioningWritesRowOnly(t *testing.T) {
	log, _, hook := newTestLog("posts", newTestSettings())

	first, err := log.Save(record.Document{"id": "doc-1", "name": "original"}, SaveOptions{})
	require.NoError(t, err)

	fired := false
	hook.EnqueueChangeSetAppendedHook(func(*events.ChangeSetAppendedContext) { fired = true })

	rec, err := log.Save(record.Document{"id": "doc-1", "name": "hotfix"}, SaveOptions{SuppressVersioning: true})
	require.NoError(t, err)
	require.NotNil(t, rec.Version)
	assert.Equal(t, *first.Version, *rec.Version, "the record keeps its version")

	count, err := log.VersionCount("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	live, err := log.Record("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hotfix", live.Doc["name"])
	assert.False(t, fired)
}

func TestSaveRejectsNonStringId(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	_, err := log.Save(record.Document{"id": 42, "name": "numeric"}, SaveOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record id must be a string")
}

func TestChangeSetAppendedHookReceivesContext(t *testing.T) {
	log, _, hook := newTestLog("posts", newTestSettings())

	var got *events.ChangeSetAppendedContext
	hook.EnqueueChangeSetAppendedHook(func(ctx *events.ChangeSetAppendedContext) { got = ctx })

	rec, err := log.Save(record.Document{"name": "hello"}, SaveOptions{})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "posts", got.Collection)
	assert.Equal(t, "posts_versions", got.LogId)
	assert.Equal(t, rec.Id, got.Record.Id)
	assert.Equal(t, 1, got.ChangeSet.Version)
}

func TestGetVersionDetectsBrokenLog(t *testing.T) {
	log, store, _ := newTestLog("posts", newTestSettings())

	require.NoError(t, store.AppendChangeSet("posts_versions", db.CreateRandomChangeSet("holey", 1)))
	require.NoError(t, store.AppendChangeSet("posts_versions", db.CreateRandomChangeSet("holey", 3)))

	version := 3
	rec := &record.Record{Id: "holey", Version: &version}
	_, err := log.GetVersion(rec, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRecordReturnsTypedNotFound(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	var notFound *exception.RecordNotFoundError
	_, err := log.Record("missing")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.RecordId)
}

func TestRecordIdsListsSavedRecords(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	first, err := log.Save(record.Document{"name": "one"}, SaveOptions{})
	require.NoError(t, err)
	second, err := log.Save(record.Document{"name": "two"}, SaveOptions{})
	require.NoError(t, err)

	ids, err := log.RecordIds()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.Id, second.Id}, ids)
}
