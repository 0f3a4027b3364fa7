package records

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ether/revlog/lib"
	"github.com/ether/revlog/lib/api/constants"
	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/settings"
)

func newTestApp(t *testing.T) (*fiber.App, *db.MemoryDataStore) {
	t.Helper()

	app := fiber.New()
	store := db.NewMemoryDataStore()
	hook := hooks.NewHook()
	testSettings := &settings.Settings{
		Versions: settings.VersionSettings{
			CollectionSuffix:  "_versions",
			TrackDates:        true,
			RollbackStrategy:  settings.RollbackReplay,
			SnapshotCacheSize: 8,
		},
	}
	manager, err := history.NewManager(store, testSettings, zap.NewNop().Sugar(), &hook)
	require.NoError(t, err)

	Init(&lib.InitStore{
		C:                 app,
		RetrievedSettings: testSettings,
		Store:             store,
		Manager:           manager,
		Validator:         validator.New(validator.WithRequiredStructEnabled()),
		Logger:            zap.NewNop().Sugar(),
		Hooks:             &hook,
	})
	return app, store
}

func jsonRequest(method string, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", constants.ContentTypeJSON)
	return req
}

func saveDocument(t *testing.T, app *fiber.App, collection string, doc map[string]any) RecordResponse {
	t.Helper()
	resp, err := app.Test(jsonRequest("POST", "/api/collections/"+collection+"/records", SaveRecordRequest{Doc: doc}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var saved RecordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	return saved
}

func TestSaveAndGetRecord(t *testing.T) {
	app, _ := newTestApp(t)

	saved := saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "hello"})
	require.NotNil(t, saved.Version)
	assert.Equal(t, 1, *saved.Version)
	assert.Equal(t, "doc-1", saved.Id)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), constants.ContentTypeJSON)

	var loaded RecordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
	assert.Equal(t, "doc-1", loaded.Id)
	assert.Equal(t, "hello", loaded.Doc["name"])
}

func TestGetMissingRecordReturns404(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestSaveRejectsInvalidBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/collections/posts/records", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", constants.ContentTypeJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSaveRejectsMissingDoc(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest("POST", "/api/collections/posts/records", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)
}

func TestSaveRejectsNonStringId(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest("POST", "/api/collections/posts/records", SaveRecordRequest{
		Doc: map[string]any{"id": 42, "name": "numeric"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetVersionEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "a"})
	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "b"})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/versions/1", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var versioned RecordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&versioned))
	require.NotNil(t, versioned.Version)
	assert.Equal(t, 1, *versioned.Version)
	assert.Equal(t, "a", versioned.Doc["name"])
}

func TestGetVersionRejectsBadNumbers(t *testing.T) {
	app, _ := newTestApp(t)

	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "a"})

	for _, version := range []string{"abc", "0", "-1", "7"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/versions/"+version, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, "version %q", version)
	}
}

func TestChangeSetsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "a"})
	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "b"})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/changesets", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var changeSets []ChangeSetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&changeSets))
	require.Len(t, changeSets, 2)
	assert.Equal(t, 1, changeSets[0].Version)
	assert.Equal(t, 2, changeSets[1].Version)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/missing/changesets", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRollbackEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "a"})
	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "b"})

	resp, err := app.Test(jsonRequest("POST", "/api/collections/posts/records/doc-1/rollback", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result RollbackResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Deleted)
	require.NotNil(t, result.Record)
	require.NotNil(t, result.Record.Version)
	assert.Equal(t, 1, *result.Record.Version)
	assert.Equal(t, "a", result.Record.Doc["name"])

	resp, err = app.Test(jsonRequest("POST", "/api/collections/posts/records/doc-1/rollback", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Deleted)

	resp, err = app.Test(jsonRequest("POST", "/api/collections/posts/records/doc-1/rollback", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRollbackLegacyRecordReturns409(t *testing.T) {
	app, store := newTestApp(t)

	legacy := record.Record{Id: "legacy-1", Doc: record.Document{"id": "legacy-1", "name": "old"}}
	require.NoError(t, store.SaveRecord("posts", legacy))

	resp, err := app.Test(jsonRequest("POST", "/api/collections/posts/records/legacy-1/rollback", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
}

func TestSaveConflictReturns409(t *testing.T) {
	app, store := newTestApp(t)

	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "a"})

	// Another writer takes version 2 first.
	require.NoError(t, store.AppendChangeSet("posts_versions", db.CreateRandomChangeSet("doc-1", 2)))

	resp, err := app.Test(jsonRequest("POST", "/api/collections/posts/records", SaveRecordRequest{
		Doc: map[string]any{"id": "doc-1", "name": "b"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
}

func TestDiffEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "a"})
	saveDocument(t, app, "posts", map[string]any{"id": "doc-1", "name": "b"})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/diff?from=1&to=2", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var diff DiffResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&diff))
	assert.Equal(t, 1, diff.From)
	assert.Equal(t, 2, diff.To)
	require.NotEmpty(t, diff.Operations)
	assert.Contains(t, diff.Text, "@@")

	resp, err = app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/diff?from=1&to=2&format=text", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	resp, err = app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/diff?to=2", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/collections/posts/records/doc-1/diff?from=1&to=up", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestRecordIdsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	first := saveDocument(t, app, "posts", map[string]any{"name": "one"})
	second := saveDocument(t, app, "posts", map[string]any{"name": "two"})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/collections/posts/records", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var ids RecordIdsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ids))
	assert.ElementsMatch(t, []string{first.Id, second.Id}, ids.RecordIds)
}
