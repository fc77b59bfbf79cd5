// Package sync coordinates the local store and the remote backend. The local
// store is the source of truth: every mutation lands there first, snapshots
// go out to subscribers second, and remote mirroring is best-effort. Bulk
// convergence happens through the explicit Bootstrap and Refresh cycles.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tasktide/tasktide/internal/logger"
	"github.com/tasktide/tasktide/internal/model"
	"github.com/tasktide/tasktide/internal/recur"
	"github.com/tasktide/tasktide/internal/remote"
	"github.com/tasktide/tasktide/internal/store"
)

// Remote is the backend contract the orchestrator depends on. The concrete
// client in internal/remote satisfies it; tests substitute a fake.
type Remote interface {
	FetchTasks(ctx context.Context) ([]model.Task, error)
	FetchTags(ctx context.Context) ([]model.Tag, error)
	FetchProjects(ctx context.Context) ([]model.Project, error)
	UpsertTask(ctx context.Context, row remote.TaskRow) (model.Task, error)
	UpsertTag(ctx context.Context, name string, id *int64) (model.Tag, error)
	UpsertProject(ctx context.Context, name string, id, tagID *int64) (model.Project, error)
	DeleteTask(ctx context.Context, id int64) error
	DeleteTag(ctx context.Context, id int64) error
	DeleteProject(ctx context.Context, id int64) error
	WipeAll(ctx context.Context) error
}

// Hooks receives change notifications. Every payload is a full snapshot, so
// subscribers replace their view wholesale. Nil hooks are skipped.
type Hooks struct {
	OnTasks    func([]model.Task)
	OnEvents   func([]model.Task)
	OnTags     func([]model.Tag)
	OnProjects func([]model.Project)
	OnBusy     func(bool)
}

// Orchestrator is the single coordination point between the local store and
// the remote backend. One mutex serializes sync cycles against every
// fine-grained mutation, so snapshots always reflect a consistent local
// state.
type Orchestrator struct {
	store  *store.Store
	remote Remote // nil runs fully offline

	mu    sync.Mutex
	hooks Hooks
	busy  bool
}

// New creates an orchestrator over st. rc may be nil for offline-only use.
func New(st *store.Store, rc Remote) *Orchestrator {
	return &Orchestrator{store: st, remote: rc}
}

// HasRemote reports whether a backend client is configured.
func (o *Orchestrator) HasRemote() bool {
	return o.remote != nil
}

// SetHooks installs the subscriber callbacks. Call before the first cycle.
func (o *Orchestrator) SetHooks(h Hooks) {
	o.mu.Lock()
	o.hooks = h
	o.mu.Unlock()
}

// Store exposes the underlying store for read-only consumers.
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

func (o *Orchestrator) setBusy(b bool) {
	if o.busy == b {
		return
	}
	o.busy = b
	if o.hooks.OnBusy != nil {
		o.hooks.OnBusy(b)
	}
}

// emitAll pushes fresh local snapshots to every subscriber. Read failures
// are logged, never raised; a snapshot that cannot be read is skipped.
func (o *Orchestrator) emitAll() {
	o.emitTasks()
	o.emitEvents()
	o.emitTags()
	o.emitProjects()
}

func (o *Orchestrator) emitTasks() {
	if o.hooks.OnTasks == nil {
		return
	}
	tasks, err := o.store.GetTasks()
	if err != nil {
		logger.Error("snapshot tasks failed", logger.F("error", err))
		return
	}
	o.hooks.OnTasks(tasks)
}

func (o *Orchestrator) emitEvents() {
	if o.hooks.OnEvents == nil {
		return
	}
	events, err := o.store.GetEvents()
	if err != nil {
		logger.Error("snapshot events failed", logger.F("error", err))
		return
	}
	o.hooks.OnEvents(events)
}

func (o *Orchestrator) emitTags() {
	if o.hooks.OnTags == nil {
		return
	}
	tags, err := o.store.GetTags()
	if err != nil {
		logger.Error("snapshot tags failed", logger.F("error", err))
		return
	}
	o.hooks.OnTags(tags)
}

func (o *Orchestrator) emitProjects() {
	if o.hooks.OnProjects == nil {
		return
	}
	projects, err := o.store.GetProjects()
	if err != nil {
		logger.Error("snapshot projects failed", logger.F("error", err))
		return
	}
	o.hooks.OnProjects(projects)
}

// Bootstrap pulls the remote state and replaces the local tables with it.
// Each entity is fetched independently; a failed fetch keeps the existing
// local rows for that entity instead of emptying the table. Snapshots are
// emitted whatever the outcome.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bootstrapLocked(ctx)
}

func (o *Orchestrator) bootstrapLocked(ctx context.Context) (err error) {
	o.setBusy(true)
	defer func() {
		o.emitAll()
		o.setBusy(false)
	}()

	if o.remote == nil {
		return nil
	}

	if tasks, ferr := o.remote.FetchTasks(ctx); ferr != nil {
		logger.Warn("bootstrap: tasks fetch failed, keeping local", logger.F("error", ferr))
	} else if rerr := o.store.ReplaceTasks(tasks); rerr != nil {
		err = fmt.Errorf("replace tasks: %w", rerr)
	}

	if tags, ferr := o.remote.FetchTags(ctx); ferr != nil {
		logger.Warn("bootstrap: tags fetch failed, keeping local", logger.F("error", ferr))
	} else if rerr := o.store.ReplaceTags(tags); rerr != nil && err == nil {
		err = fmt.Errorf("replace tags: %w", rerr)
	}

	if projects, ferr := o.remote.FetchProjects(ctx); ferr != nil {
		logger.Warn("bootstrap: projects fetch failed, keeping local", logger.F("error", ferr))
	} else if rerr := o.store.ReplaceProjects(projects); rerr != nil && err == nil {
		err = fmt.Errorf("replace projects: %w", rerr)
	}

	return err
}

// Refresh makes the remote match local truth: the queue is drained (the full
// re-push supersedes every queued partial mutation), the remote tables are
// wiped, every local tag, project and task is re-pushed, and a bootstrap
// pulls the converged state back. One failing row never aborts the rest.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.setBusy(true)
	defer o.setBusy(false)

	tasks, err := o.store.GetAllTasks()
	if err != nil {
		o.emitAll()
		return fmt.Errorf("refresh: read tasks: %w", err)
	}
	tags, err := o.store.GetTags()
	if err != nil {
		o.emitAll()
		return fmt.Errorf("refresh: read tags: %w", err)
	}
	projects, err := o.store.GetProjects()
	if err != nil {
		o.emitAll()
		return fmt.Errorf("refresh: read projects: %w", err)
	}

	if dropped, err := o.store.DequeueAll(); err != nil {
		logger.Warn("refresh: queue drain failed", logger.F("error", err))
	} else if len(dropped) > 0 {
		logger.Debug("refresh: queue superseded by full re-push", logger.F("entries", len(dropped)))
	}

	if o.remote == nil {
		o.emitAll()
		return nil
	}

	if err := o.remote.WipeAll(ctx); err != nil {
		logger.Error("refresh: remote wipe failed", logger.F("error", err))
	}

	pushed := 0
	for _, g := range tags {
		id := g.ID
		if _, err := o.remote.UpsertTag(ctx, g.Name, &id); err != nil {
			logger.Warn("refresh: push tag failed", logger.F("id", g.ID), logger.F("error", err))
			continue
		}
		pushed++
	}
	for _, p := range projects {
		id := p.ID
		if _, err := o.remote.UpsertProject(ctx, p.Name, &id, p.TagID); err != nil {
			logger.Warn("refresh: push project failed", logger.F("id", p.ID), logger.F("error", err))
			continue
		}
		pushed++
	}
	for _, t := range tasks {
		if _, err := o.remote.UpsertTask(ctx, fullTaskRow(t)); err != nil {
			logger.Warn("refresh: push task failed", logger.F("id", t.ID), logger.F("error", err))
			continue
		}
		pushed++
	}
	logger.Info("refresh: pushed local state", logger.F("rows", pushed))

	return o.bootstrapLocked(ctx)
}

// mirror runs a best-effort remote call after a local write. Failures are
// logged and swallowed; the local mutation already succeeded.
func (o *Orchestrator) mirror(op string, call func() error) {
	if o.remote == nil {
		return
	}
	if err := call(); err != nil {
		logger.Warn("remote mirror failed", logger.F("op", op), logger.F("error", err))
	}
}

// fullTaskRow maps a full local task onto a wire row.
func fullTaskRow(t model.Task) remote.TaskRow {
	row := remote.TaskRow{
		ID:        &t.ID,
		Title:     &t.Title,
		Notes:     &t.Notes,
		Status:    &t.Status,
		TagID:     t.TagID,
		ProjectID: t.ProjectID,
		HasTime:   &t.HasTime,
		ParentID:  t.ParentID,
		SeriesID:  t.SeriesID,
	}
	if t.DueDate != "" {
		row.DueDate = &t.DueDate
	}
	if t.StartTS != "" {
		row.StartTS = &t.StartTS
	}
	if t.EndTS != "" {
		row.EndTS = &t.EndTS
	}
	return row
}

// --- fine-grained mutations -------------------------------------------------

// UpsertTask writes a task locally and emits fresh snapshots. Remote
// convergence rides on the queue and the refresh cycle.
func (o *Orchestrator) UpsertTask(p store.TaskParams) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, err := o.store.UpsertTask(p)
	if err != nil {
		return 0, fmt.Errorf("upsert task: %w", err)
	}
	o.emitTasks()
	o.emitEvents()
	return id, nil
}

// DeleteTask soft-deletes a task locally and emits fresh snapshots.
func (o *Orchestrator) DeleteTask(id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.DeleteTask(id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	o.emitTasks()
	o.emitEvents()
	return nil
}

// SetTaskStatus writes only the status and mirrors the change to the remote
// immediately. Title and notes are never touched.
func (o *Orchestrator) SetTaskStatus(ctx context.Context, id int64, status string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SetTaskStatus(id, status); err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	o.emitTasks()
	o.emitEvents()

	o.mirror("set status", func() error {
		_, err := o.remote.UpsertTask(ctx, remote.TaskRow{ID: &id, Status: &status})
		return err
	})
	return nil
}

// SetTaskTimes updates a task's scheduling window.
func (o *Orchestrator) SetTaskTimes(id int64, startTS, endTS string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SetTaskTimes(id, startTS, endTS); err != nil {
		return fmt.Errorf("set task times: %w", err)
	}
	o.emitTasks()
	o.emitEvents()
	return nil
}

// SetTaskParent reparents a task (nil detaches) and mirrors the change.
func (o *Orchestrator) SetTaskParent(ctx context.Context, id int64, parentID *int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SetTaskParent(id, parentID); err != nil {
		return fmt.Errorf("set task parent: %w", err)
	}
	o.emitTasks()

	o.mirror("set parent", func() error {
		_, err := o.remote.UpsertTask(ctx, remote.TaskRow{ID: &id, ParentID: parentID})
		return err
	})
	return nil
}

// SetTaskTag assigns or clears a task's tag.
func (o *Orchestrator) SetTaskTag(id int64, tagID *int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SetTaskTag(id, tagID); err != nil {
		return fmt.Errorf("set task tag: %w", err)
	}
	o.emitTasks()
	o.emitEvents()
	return nil
}

// SetTaskProject assigns or clears a task's project.
func (o *Orchestrator) SetTaskProject(id int64, projectID *int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SetTaskProject(id, projectID); err != nil {
		return fmt.Errorf("set task project: %w", err)
	}
	o.emitTasks()
	o.emitEvents()
	return nil
}

// DeleteFuture soft-deletes a task and every later occurrence in its series.
func (o *Orchestrator) DeleteFuture(id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.DeleteFutureInSeries(id); err != nil {
		return fmt.Errorf("delete future: %w", err)
	}
	o.emitTasks()
	o.emitEvents()
	return nil
}

// AddTag creates a tag locally.
func (o *Orchestrator) AddTag(name string) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, err := o.store.AddTag(name)
	if err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}
	o.emitTags()
	return id, nil
}

// DeleteTag removes a tag locally.
func (o *Orchestrator) DeleteTag(id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.DeleteTag(id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	o.emitTags()
	return nil
}

// AddProject creates a project locally (idempotent by name) and mirrors the
// insert to the remote.
func (o *Orchestrator) AddProject(ctx context.Context, name string, tagID *int64) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, err := o.store.AddProject(name, tagID)
	if err != nil {
		return 0, fmt.Errorf("add project: %w", err)
	}
	o.emitProjects()

	o.mirror("add project", func() error {
		_, err := o.remote.UpsertProject(ctx, name, &id, tagID)
		return err
	})
	return id, nil
}

// DeleteProject removes a project locally.
func (o *Orchestrator) DeleteProject(id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.DeleteProject(id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	o.emitProjects()
	return nil
}

// --- recurrence -------------------------------------------------------------

// tsLayout is the naive local timestamp format task windows are stored in.
const tsLayout = "2006-01-02T15:04:05"

// UpsertSeries materializes a recurring task. The rule is expanded from the
// task's start (or due date at midnight), capped at the default limit. The
// occurrence matching the original anchor updates the task in place; every
// other occurrence becomes a new row sharing the series id and the anchor's
// duration. An empty rule degrades to a plain upsert.
func (o *Orchestrator) UpsertSeries(p store.TaskParams, rule string) (int64, error) {
	if rule == "" {
		return o.UpsertTask(p)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var anchor time.Time
	var err error
	timed := p.StartTS != "" && p.EndTS != ""
	if timed {
		anchor, err = time.Parse(tsLayout, p.StartTS)
	} else if p.DueDate != "" {
		anchor, err = time.Parse(tsLayout, p.DueDate+"T00:00:00")
	} else {
		return 0, fmt.Errorf("upsert series: no anchor start or due date")
	}
	if err != nil {
		return 0, fmt.Errorf("upsert series: parse anchor: %w", err)
	}

	var duration time.Duration
	if timed {
		end, err := time.Parse(tsLayout, p.EndTS)
		if err != nil {
			return 0, fmt.Errorf("upsert series: parse end: %w", err)
		}
		duration = end.Sub(anchor)
		if duration <= 0 {
			return 0, fmt.Errorf("upsert series: end %s is not after start %s", p.EndTS, p.StartTS)
		}
	}

	seriesID := time.Now().Unix()
	if p.SeriesID != nil {
		seriesID = *p.SeriesID
	}

	occurrences := recur.PlanSeries(rule, anchor, duration, recur.DefaultLimit)

	anchorTaskID := int64(0)
	for _, occ := range occurrences {
		params := p
		params.SeriesID = &seriesID
		params.DueDate = occ.Due
		if timed {
			params.StartTS = occ.Start.Format(tsLayout)
			params.EndTS = occ.End.Format(tsLayout)
		} else {
			params.StartTS = ""
			params.EndTS = ""
		}

		// Only the occurrence at the original anchor reuses the existing id.
		if !(p.ID != 0 && occ.Start.Equal(anchor)) {
			params.ID = 0
		}

		id, err := o.store.UpsertTask(params)
		if err != nil {
			return 0, fmt.Errorf("upsert series occurrence: %w", err)
		}
		if occ.Start.Equal(anchor) {
			anchorTaskID = id
		}
	}

	o.emitTasks()
	o.emitEvents()
	return anchorTaskID, nil
}

// --- pomodoro ---------------------------------------------------------------

// LogPomodoro appends a completed focus session to the local log.
func (o *Orchestrator) LogPomodoro(sess model.PomodoroSession) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id, err := o.store.InsertPomodoroSession(sess)
	if err != nil {
		return 0, fmt.Errorf("log pomodoro: %w", err)
	}
	return id, nil
}

// PomodoroHistory returns a task's sessions, newest first.
func (o *Orchestrator) PomodoroHistory(taskID int64) ([]model.PomodoroSession, error) {
	return o.store.ListPomodoroSessionsForTask(taskID)
}

// ActiveTasks returns the non-deleted backlog tasks. This is the explicit
// seam the pomodoro command consumes instead of probing the store for fetch
// methods by name.
func (o *Orchestrator) ActiveTasks() ([]model.Task, error) {
	return o.store.GetTasks()
}

// --- queue replay -----------------------------------------------------------

// Flush drains the sync queue and replays each entry against the remote in
// insertion order. Entries whose replay fails are re-enqueued; only
// confirmed-sent entries are dropped. Returns how many were sent and how
// many went back on the queue.
func (o *Orchestrator) Flush(ctx context.Context) (sent, requeued int, err error) {
	if o.remote == nil {
		return 0, 0, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	entries, err := o.store.DequeueAll()
	if err != nil {
		return 0, 0, fmt.Errorf("flush: drain queue: %w", err)
	}

	for _, e := range entries {
		if rerr := o.replay(ctx, e); rerr != nil {
			logger.Warn("flush: replay failed, requeueing",
				logger.F("table", e.Table), logger.F("op", e.Op), logger.F("error", rerr))
			if qerr := o.store.Enqueue(e.Table, e.Op, e.Payload); qerr != nil {
				return sent, requeued, fmt.Errorf("flush: requeue: %w", qerr)
			}
			requeued++
			continue
		}
		sent++
	}

	if sent > 0 || requeued > 0 {
		logger.Info("flush complete", logger.F("sent", sent), logger.F("requeued", requeued))
	}
	return sent, requeued, nil
}

func (o *Orchestrator) replay(ctx context.Context, e model.QueueEntry) error {
	switch e.Table {
	case "tasks":
		if e.Op == model.OpDelete {
			var p struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
			return o.remote.DeleteTask(ctx, p.ID)
		}
		var row remote.TaskRow
		if err := json.Unmarshal(e.Payload, &row); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		_, err := o.remote.UpsertTask(ctx, row)
		return err

	case "tags":
		if e.Op == model.OpDelete {
			var p struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
			return o.remote.DeleteTag(ctx, p.ID)
		}
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		_, err := o.remote.UpsertTag(ctx, p.Name, nil)
		return err

	case "projects":
		if e.Op == model.OpDelete {
			var p struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
			return o.remote.DeleteProject(ctx, p.ID)
		}
		var p struct {
			Name  string `json:"name"`
			TagID *int64 `json:"tag_id"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		_, err := o.remote.UpsertProject(ctx, p.Name, nil, p.TagID)
		return err
	}

	// Unknown table: drop rather than loop forever.
	logger.Warn("flush: dropping entry for unknown table", logger.F("table", e.Table))
	return nil
}
