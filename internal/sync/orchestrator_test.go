package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktide/tasktide/internal/model"
	"github.com/tasktide/tasktide/internal/remote"
	"github.com/tasktide/tasktide/internal/store"
)

// fakeRemote is an in-memory backend. Any error set in fail* is returned by
// the matching calls.
type fakeRemote struct {
	tasks    map[int64]model.Task
	tags     map[int64]model.Tag
	projects map[int64]model.Project
	nextID   int64

	failFetchTasks error
	failUpserts    error
	wipes          int
	upsertedTasks  []remote.TaskRow
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tasks:    map[int64]model.Task{},
		tags:     map[int64]model.Tag{},
		projects: map[int64]model.Project{},
		nextID:   1000,
	}
}

func (f *fakeRemote) FetchTasks(ctx context.Context) ([]model.Task, error) {
	if f.failFetchTasks != nil {
		return nil, f.failFetchTasks
	}
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRemote) FetchTags(ctx context.Context) ([]model.Tag, error) {
	out := make([]model.Tag, 0, len(f.tags))
	for _, t := range f.tags {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRemote) FetchProjects(ctx context.Context) ([]model.Project, error) {
	out := make([]model.Project, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRemote) UpsertTask(ctx context.Context, row remote.TaskRow) (model.Task, error) {
	if f.failUpserts != nil {
		return model.Task{}, f.failUpserts
	}
	f.upsertedTasks = append(f.upsertedTasks, row)

	var id int64
	if row.ID != nil {
		id = *row.ID
	} else {
		f.nextID++
		id = f.nextID
	}
	t := f.tasks[id]
	t.ID = id
	if row.Title != nil {
		t.Title = *row.Title
	}
	if row.Notes != nil {
		t.Notes = *row.Notes
	}
	if row.Status != nil {
		t.Status = *row.Status
	}
	if row.DueDate != nil {
		t.DueDate = *row.DueDate
	}
	if row.StartTS != nil {
		t.StartTS = *row.StartTS
	}
	if row.EndTS != nil {
		t.EndTS = *row.EndTS
	}
	if row.HasTime != nil {
		t.HasTime = *row.HasTime
	}
	if row.TagID != nil {
		t.TagID = row.TagID
	}
	if row.SeriesID != nil {
		t.SeriesID = row.SeriesID
	}
	f.tasks[id] = t
	return t, nil
}

func (f *fakeRemote) UpsertTag(ctx context.Context, name string, id *int64) (model.Tag, error) {
	if f.failUpserts != nil {
		return model.Tag{}, f.failUpserts
	}
	var tid int64
	if id != nil {
		tid = *id
	} else {
		f.nextID++
		tid = f.nextID
	}
	t := model.Tag{ID: tid, Name: name}
	f.tags[tid] = t
	return t, nil
}

func (f *fakeRemote) UpsertProject(ctx context.Context, name string, id, tagID *int64) (model.Project, error) {
	if f.failUpserts != nil {
		return model.Project{}, f.failUpserts
	}
	var pid int64
	if id != nil {
		pid = *id
	} else {
		f.nextID++
		pid = f.nextID
	}
	p := model.Project{ID: pid, Name: name, TagID: tagID}
	f.projects[pid] = p
	return p, nil
}

func (f *fakeRemote) DeleteTask(ctx context.Context, id int64) error {
	delete(f.tasks, id)
	return nil
}

func (f *fakeRemote) DeleteTag(ctx context.Context, id int64) error {
	delete(f.tags, id)
	return nil
}

func (f *fakeRemote) DeleteProject(ctx context.Context, id int64) error {
	delete(f.projects, id)
	return nil
}

func (f *fakeRemote) WipeAll(ctx context.Context) error {
	f.wipes++
	f.tasks = map[int64]model.Task{}
	f.tags = map[int64]model.Tag{}
	f.projects = map[int64]model.Project{}
	return nil
}

func newTestOrchestrator(t *testing.T, rc Remote) *Orchestrator {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, rc)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces local with remote", func(t *testing.T) {
		rc := newFakeRemote()
		rc.tasks[7] = model.Task{ID: 7, Title: "remote", Status: model.StatusDone}
		rc.tags[2] = model.Tag{ID: 2, Name: "work"}

		o := newTestOrchestrator(t, rc)
		_, err := o.UpsertTask(store.TaskParams{Title: "local only"})
		require.NoError(t, err)

		require.NoError(t, o.Bootstrap(ctx))

		tasks, err := o.Store().GetAllTasks()
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, int64(7), tasks[0].ID)
		assert.Equal(t, "remote", tasks[0].Title)

		tags, err := o.Store().GetTags()
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "work", tags[0].Name)
	})

	t.Run("failed fetch keeps local rows for that entity", func(t *testing.T) {
		rc := newFakeRemote()
		rc.failFetchTasks = errors.New("network down")
		rc.tags[2] = model.Tag{ID: 2, Name: "remote-tag"}

		o := newTestOrchestrator(t, rc)
		id, err := o.UpsertTask(store.TaskParams{Title: "precious local"})
		require.NoError(t, err)
		_, err = o.AddTag("local-tag")
		require.NoError(t, err)

		require.NoError(t, o.Bootstrap(ctx))

		task, err := o.Store().GetTaskByID(id)
		require.NoError(t, err)
		assert.Equal(t, "precious local", task.Title)

		tags, err := o.Store().GetTags()
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "remote-tag", tags[0].Name, "reachable entities still replace")
	})

	t.Run("nil remote is a no-op", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)
		_, err := o.UpsertTask(store.TaskParams{Title: "offline"})
		require.NoError(t, err)

		require.NoError(t, o.Bootstrap(ctx))

		tasks, err := o.Store().GetAllTasks()
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	rc := newFakeRemote()
	rc.tasks[99] = model.Task{ID: 99, Title: "stale remote"}

	o := newTestOrchestrator(t, rc)
	tagID, err := o.AddTag("focus")
	require.NoError(t, err)
	taskID, err := o.UpsertTask(store.TaskParams{Title: "push me", DueDate: "2024-04-01", TagID: &tagID})
	require.NoError(t, err)
	require.NoError(t, o.SetTaskStatus(ctx, taskID, model.StatusInProgress))

	require.NoError(t, o.Refresh(ctx))

	assert.Equal(t, 1, rc.wipes)
	assert.NotContains(t, rc.tasks, int64(99), "stale remote rows wiped")

	// Local truth survived the round trip.
	task, err := o.Store().GetTaskByID(taskID)
	require.NoError(t, err)
	assert.Equal(t, "push me", task.Title)
	assert.Equal(t, model.StatusInProgress, task.Status)
	assert.Equal(t, "2024-04-01", task.DueDate)

	tags, err := o.Store().GetTags()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "focus", tags[0].Name)

	n, err := o.Store().QueueLen()
	require.NoError(t, err)
	assert.Zero(t, n, "full re-push supersedes the queue")
}

func TestSetTaskStatusMirrors(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	o := newTestOrchestrator(t, rc)

	id, err := o.UpsertTask(store.TaskParams{Title: "Review"})
	require.NoError(t, err)

	require.NoError(t, o.SetTaskStatus(ctx, id, model.StatusDone))

	require.NotEmpty(t, rc.upsertedTasks)
	last := rc.upsertedTasks[len(rc.upsertedTasks)-1]
	require.NotNil(t, last.ID)
	assert.Equal(t, id, *last.ID)
	require.NotNil(t, last.Status)
	assert.Equal(t, model.StatusDone, *last.Status)
	assert.Nil(t, last.Title, "status mirror carries only id and status")
}

func TestMirrorFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	rc := newFakeRemote()
	rc.failUpserts = errors.New("remote down")
	o := newTestOrchestrator(t, rc)

	id, err := o.UpsertTask(store.TaskParams{Title: "Stubborn"})
	require.NoError(t, err)

	require.NoError(t, o.SetTaskStatus(ctx, id, model.StatusDone), "local write wins even when the mirror fails")

	task, err := o.Store().GetTaskByID(id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, task.Status)
}

func TestFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("replays queued mutations in order", func(t *testing.T) {
		rc := newFakeRemote()
		o := newTestOrchestrator(t, rc)

		_, err := o.AddTag("queued-tag")
		require.NoError(t, err)
		taskID, err := o.UpsertTask(store.TaskParams{Title: "queued task"})
		require.NoError(t, err)
		require.NoError(t, o.DeleteTask(taskID))

		sent, requeued, err := o.Flush(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, sent)
		assert.Zero(t, requeued)

		assert.NotContains(t, rc.tasks, taskID, "upsert then delete nets out")
		found := false
		for _, g := range rc.tags {
			if g.Name == "queued-tag" {
				found = true
			}
		}
		assert.True(t, found)

		n, err := o.Store().QueueLen()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("failed entries go back on the queue", func(t *testing.T) {
		rc := newFakeRemote()
		rc.failUpserts = errors.New("still down")
		o := newTestOrchestrator(t, rc)

		_, err := o.UpsertTask(store.TaskParams{Title: "patient"})
		require.NoError(t, err)

		sent, requeued, err := o.Flush(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Equal(t, 1, requeued)

		// Once the remote recovers the entry drains.
		rc.failUpserts = nil
		sent, requeued, err = o.Flush(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Zero(t, requeued)
	})

	t.Run("nil remote leaves the queue untouched", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)
		_, err := o.UpsertTask(store.TaskParams{Title: "offline"})
		require.NoError(t, err)

		sent, requeued, err := o.Flush(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Zero(t, requeued)

		n, err := o.Store().QueueLen()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestUpsertSeries(t *testing.T) {
	t.Run("timed series shares duration and series id", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)

		id, err := o.UpsertSeries(store.TaskParams{
			Title:   "Gym",
			StartTS: "2024-01-01T07:00:00",
			EndTS:   "2024-01-01T08:00:00",
		}, "FREQ=DAILY;COUNT=3")
		require.NoError(t, err)
		require.NotZero(t, id)

		events, err := o.Store().GetEvents()
		require.NoError(t, err)
		require.Len(t, events, 3)

		series := events[0].SeriesID
		require.NotNil(t, series)
		for i, e := range events {
			require.NotNil(t, e.SeriesID)
			assert.Equal(t, *series, *e.SeriesID)
			assert.Equal(t, "Gym", e.Title)
			assert.Equal(t, "07:00:00", e.StartTS[11:], "occurrence %d", i)
			assert.Equal(t, "08:00:00", e.EndTS[11:])
		}
		assert.Equal(t, id, events[0].ID, "anchor occurrence comes back as the handle")
	})

	t.Run("editing the anchor reuses its id", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)

		id, err := o.UpsertSeries(store.TaskParams{
			Title:   "Standup",
			StartTS: "2024-01-01T09:00:00",
			EndTS:   "2024-01-01T09:15:00",
		}, "FREQ=DAILY;COUNT=2")
		require.NoError(t, err)

		series := int64FromTask(t, o, id)
		got, err := o.UpsertSeries(store.TaskParams{
			ID:       id,
			Title:    "Standup v2",
			StartTS:  "2024-01-01T09:00:00",
			EndTS:    "2024-01-01T09:15:00",
			SeriesID: &series,
		}, "FREQ=DAILY;COUNT=2")
		require.NoError(t, err)
		assert.Equal(t, id, got)

		task, err := o.Store().GetTaskByID(id)
		require.NoError(t, err)
		assert.Equal(t, "Standup v2", task.Title)
	})

	t.Run("due-only series materializes unscheduled tasks", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)

		_, err := o.UpsertSeries(store.TaskParams{
			Title:   "Water plants",
			DueDate: "2024-01-01",
		}, "FREQ=WEEKLY;COUNT=2")
		require.NoError(t, err)

		tasks, err := o.Store().GetTasks()
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		dues := map[string]bool{}
		for _, x := range tasks {
			assert.False(t, x.HasTime)
			dues[x.DueDate] = true
		}
		assert.True(t, dues["2024-01-01"])
		assert.True(t, dues["2024-01-08"])
	})

	t.Run("empty rule is a plain upsert", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)

		id, err := o.UpsertSeries(store.TaskParams{Title: "Once"}, "")
		require.NoError(t, err)

		tasks, err := o.Store().GetAllTasks()
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, id, tasks[0].ID)
		assert.Nil(t, tasks[0].SeriesID)
	})

	t.Run("no anchor fails", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)
		_, err := o.UpsertSeries(store.TaskParams{Title: "Floating"}, "FREQ=DAILY;COUNT=2")
		assert.Error(t, err)
	})

	t.Run("inverted or empty window fails", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)

		for _, end := range []string{"2024-01-01T07:00:00", "2024-01-01T06:00:00"} {
			_, err := o.UpsertSeries(store.TaskParams{
				Title:   "Backwards",
				StartTS: "2024-01-01T07:00:00",
				EndTS:   end,
			}, "FREQ=DAILY;COUNT=2")
			assert.Error(t, err, "end %s", end)
		}

		tasks, err := o.Store().GetAllTasks()
		require.NoError(t, err)
		assert.Empty(t, tasks, "nothing materialized from an invalid window")
	})
}

func int64FromTask(t *testing.T, o *Orchestrator, id int64) int64 {
	t.Helper()
	task, err := o.Store().GetTaskByID(id)
	require.NoError(t, err)
	require.NotNil(t, task.SeriesID)
	return *task.SeriesID
}

func TestHooks(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	var taskSnaps, tagSnaps int
	var lastTasks []model.Task
	o.SetHooks(Hooks{
		OnTasks: func(ts []model.Task) {
			taskSnaps++
			lastTasks = ts
		},
		OnTags: func([]model.Tag) { tagSnaps++ },
	})

	_, err := o.UpsertTask(store.TaskParams{Title: "observed"})
	require.NoError(t, err)
	assert.Equal(t, 1, taskSnaps)
	require.Len(t, lastTasks, 1)
	assert.Equal(t, "observed", lastTasks[0].Title)
	assert.Zero(t, tagSnaps, "task writes do not emit tag snapshots")

	_, err = o.AddTag("observed-tag")
	require.NoError(t, err)
	assert.Equal(t, 1, tagSnaps)
}

func TestBusyHook(t *testing.T) {
	rc := newFakeRemote()
	o := newTestOrchestrator(t, rc)

	var transitions []bool
	o.SetHooks(Hooks{OnBusy: func(b bool) { transitions = append(transitions, b) }})

	require.NoError(t, o.Bootstrap(context.Background()))
	assert.Equal(t, []bool{true, false}, transitions)
}
