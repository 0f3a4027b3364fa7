package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ether/revlog/lib/exception"
	"github.com/ether/revlog/lib/hooks/events"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/settings"
)

// seedThreeVersions builds a history where the two rollback strategies
// disagree: version 2 removed the tag, so reapplying its change set onto
// the live document cannot bring the old name back, a replay can.
func seedThreeVersions(t *testing.T, log *Log) *record.Record {
	t.Helper()
	_, err := log.Save(record.Document{"id": "doc-1", "name": "A", "tag": "x"}, SaveOptions{})
	require.NoError(t, err)
	_, err = log.Save(record.Document{"id": "doc-1", "name": "A"}, SaveOptions{})
	require.NoError(t, err)
	rec, err := log.Save(record.Document{"id": "doc-1", "name": "B"}, SaveOptions{})
	require.NoError(t, err)
	return rec
}

func TestRollbackPatchStrategyIsApproximate(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())
	rec := seedThreeVersions(t, log)

	result, err := log.Rollback(rec)
	require.NoError(t, err)
	require.False(t, result.Deleted)
	require.NotNil(t, result.Record.Version)
	assert.Equal(t, 2, *result.Record.Version)

	// The change set that produced version 2 only removed the tag, so the
	// name keeps the value of the discarded version.
	assert.Equal(t, "B", result.Record.Doc["name"])
	assert.NotContains(t, result.Record.Doc, "tag")
}

func TestRollbackReplayStrategyIsExact(t *testing.T) {
	testSettings := newTestSettings()
	testSettings.Versions.RollbackStrategy = settings.RollbackReplay
	log, _, _ := newTestLog("posts", testSettings)
	rec := seedThreeVersions(t, log)

	result, err := log.Rollback(rec)
	require.NoError(t, err)
	require.NotNil(t, result.Record.Version)
	assert.Equal(t, 2, *result.Record.Version)

	assert.Equal(t, "A", result.Record.Doc["name"])
	assert.NotContains(t, result.Record.Doc, "tag")
}

func TestRollbackTrimsTheLog(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())
	rec := seedThreeVersions(t, log)

	_, err := log.Rollback(rec)
	require.NoError(t, err)

	changeSets, err := log.ChangeSets("doc-1")
	require.NoError(t, err)
	require.Len(t, changeSets, 2)
	assert.Equal(t, 2, changeSets[len(changeSets)-1].Version)
}

func TestRollbackFirstVersionDeletesRecord(t *testing.T) {
	log, _, _ := newTestLog("posts", newTestSettings())

	rec, err := log.Save(record.Document{"id": "doc-1", "name": "only"}, SaveOptions{})
	require.NoError(t, err)

	result, err := log.Rollback(rec)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Nil(t, result.Record)

	var notFound *exception.RecordNotFoundError
	_, err = log.Record("doc-1")
	require.ErrorAs(t, err, &notFound)

	count, err := log.VersionCount("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRollbackLegacyRecordFails(t *testing.T) {
	log, store, _ := newTestLog("posts", newTestSettings())

	legacy := record.Record{Id: "legacy-1", Doc: record.Document{"id": "legacy-1", "name": "old"}}
	require.NoError(t, store.SaveRecord("posts", legacy))

	var noPrevious *exception.NoPreviousVersionError
	_, err := log.Rollback(&legacy)
	require.ErrorAs(t, err, &noPrevious)
	assert.Equal(t, "legacy-1", noPrevious.RecordId)
}

func TestRollbackFiresHook(t *testing.T) {
	log, _, hook := newTestLog("posts", newTestSettings())
	rec := seedThreeVersions(t, log)

	var got *events.RecordRolledBackContext
	hook.EnqueueRecordRolledBackHook(func(ctx *events.RecordRolledBackContext) { got = ctx })

	_, err := log.Rollback(rec)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "posts", got.Collection)
	assert.Equal(t, "posts_versions", got.LogId)
	assert.Equal(t, "doc-1", got.RecordId)
	assert.Equal(t, 3, got.RemovedVersion)
	require.NotNil(t, got.NewVersion)
	assert.Equal(t, 2, *got.NewVersion)
	assert.False(t, got.Deleted)
}

func TestRollbackDeleteFiresHookWithoutNewVersion(t *testing.T) {
	log, _, hook := newTestLog("posts", newTestSettings())

	rec, err := log.Save(record.Document{"id": "doc-1", "name": "only"}, SaveOptions{})
	require.NoError(t, err)

	var got *events.RecordRolledBackContext
	hook.EnqueueRecordRolledBackHook(func(ctx *events.RecordRolledBackContext) { got = ctx })

	_, err = log.Rollback(rec)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, 1, got.RemovedVersion)
	assert.Nil(t, got.NewVersion)
	assert.True(t, got.Deleted)
}

func TestRollbackWalksBackToDeletion(t *testing.T) {
	testSettings := newTestSettings()
	testSettings.Versions.RollbackStrategy = settings.RollbackReplay
	log, _, _ := newTestLog("posts", testSettings)
	rec := seedThreeVersions(t, log)

	result, err := log.Rollback(rec)
	require.NoError(t, err)
	require.NotNil(t, result.Record)

	result, err = log.Rollback(result.Record)
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	require.NotNil(t, result.Record.Version)
	assert.Equal(t, 1, *result.Record.Version)
	assert.Equal(t, "A", result.Record.Doc["name"])
	assert.Equal(t, "x", result.Record.Doc["tag"])

	result, err = log.Rollback(result.Record)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
}
