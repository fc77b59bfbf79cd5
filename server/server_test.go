package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktide/tasktide/internal/model"
	"github.com/tasktide/tasktide/internal/remote"
)

func newTestBackend(t *testing.T, apiKey string) *remote.Client {
	t.Helper()

	srv, err := New(filepath.Join(t.TempDir(), "server.db"), apiKey)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return remote.NewClient(ts.URL, apiKey)
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestBackend(t, "test-key")

	id := int64(41)
	created, err := c.UpsertTask(ctx, remote.TaskRow{
		ID:      &id,
		Title:   strPtr("Ship release"),
		Notes:   strPtr("tag the build first"),
		Status:  strPtr(model.StatusNotStarted),
		DueDate: strPtr("2024-05-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, "Ship release", created.Title)
	assert.NotEmpty(t, created.CreatedAt)

	t.Run("merge upsert keeps unsent fields", func(t *testing.T) {
		updated, err := c.UpsertTask(ctx, remote.TaskRow{
			ID:     &id,
			Status: strPtr(model.StatusDone),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusDone, updated.Status)
		assert.Equal(t, "Ship release", updated.Title)
		assert.Equal(t, "tag the build first", updated.Notes)
		assert.Equal(t, "2024-05-01", updated.DueDate)
	})

	t.Run("fetch returns the stored rows", func(t *testing.T) {
		tasks, err := c.FetchTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, id, tasks[0].ID)
		assert.Equal(t, model.StatusDone, tasks[0].Status)
		assert.False(t, tasks[0].HasTime)
	})

	t.Run("scheduled window round trips has_time", func(t *testing.T) {
		eid := int64(42)
		stored, err := c.UpsertTask(ctx, remote.TaskRow{
			ID:      &eid,
			Title:   strPtr("Meeting"),
			HasTime: boolPtr(true),
			StartTS: strPtr("2024-05-02T10:00:00"),
			EndTS:   strPtr("2024-05-02T11:00:00"),
		})
		require.NoError(t, err)
		assert.True(t, stored.HasTime)
		assert.Equal(t, "2024-05-02T10:00:00Z", stored.StartTS)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.DeleteTask(ctx, id))
		tasks, err := c.FetchTasks(ctx)
		require.NoError(t, err)
		for _, x := range tasks {
			assert.NotEqual(t, id, x.ID)
		}

		// Absent ids delete cleanly.
		require.NoError(t, c.DeleteTask(ctx, 9999))
	})
}

func boolPtr(b bool) *bool { return &b }

func TestTagsAndProjects(t *testing.T) {
	ctx := context.Background()
	c := newTestBackend(t, "test-key")

	t.Run("server assigns ids when absent", func(t *testing.T) {
		tag, err := c.UpsertTag(ctx, "work", nil)
		require.NoError(t, err)
		assert.NotZero(t, tag.ID)
		assert.Equal(t, "work", tag.Name)

		// Same name again merges into the existing row.
		again, err := c.UpsertTag(ctx, "work", nil)
		require.NoError(t, err)
		assert.Equal(t, tag.ID, again.ID)

		tags, err := c.FetchTags(ctx)
		require.NoError(t, err)
		assert.Len(t, tags, 1)
	})

	t.Run("explicit ids are preserved", func(t *testing.T) {
		proj, err := c.UpsertProject(ctx, "Home", i64Ptr(12), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(12), proj.ID)

		withTag, err := c.UpsertProject(ctx, "Home", i64Ptr(12), i64Ptr(3))
		require.NoError(t, err)
		require.NotNil(t, withTag.TagID)
		assert.Equal(t, int64(3), *withTag.TagID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.DeleteProject(ctx, 12))
		projects, err := c.FetchProjects(ctx)
		require.NoError(t, err)
		assert.Empty(t, projects)
	})
}

func TestWipeAll(t *testing.T) {
	ctx := context.Background()
	c := newTestBackend(t, "test-key")

	_, err := c.UpsertTag(ctx, "a", nil)
	require.NoError(t, err)
	_, err = c.UpsertProject(ctx, "b", nil, nil)
	require.NoError(t, err)
	id := int64(1)
	_, err = c.UpsertTask(ctx, remote.TaskRow{ID: &id, Title: strPtr("c")})
	require.NoError(t, err)

	require.NoError(t, c.WipeAll(ctx))

	tasks, err := c.FetchTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	tags, err := c.FetchTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
	projects, err := c.FetchProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestAuth(t *testing.T) {
	ctx := context.Background()

	srv, err := New(filepath.Join(t.TempDir(), "server.db"), "right-key")
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	t.Run("wrong key is rejected", func(t *testing.T) {
		bad := remote.NewClient(ts.URL, "wrong-key")
		_, err := bad.FetchTasks(ctx)
		var re *remote.Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusUnauthorized, re.Status)
	})

	t.Run("right key passes", func(t *testing.T) {
		good := remote.NewClient(ts.URL, "right-key")
		_, err := good.FetchTasks(ctx)
		require.NoError(t, err)
	})

	t.Run("health needs no key", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestUnknownTable(t *testing.T) {
	srv, err := New(filepath.Join(t.TempDir(), "server.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/rest/v1/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
