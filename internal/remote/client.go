// Package remote is a thin client for the PostgREST-style table-per-entity
// backend. Every call carries the API key header pair and a per-call timeout;
// failures come back as typed errors so the orchestrator can apply one
// consistent log-and-continue policy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tasktide/tasktide/internal/model"
)

const (
	preferUpsert = "return=representation,resolution=merge-duplicates"

	taskFields = "id,title,notes,status,tag_id,project_id,has_time,due_date,start_ts,end_ts,parent_id,series_id,created_at,updated_at"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Body)
}

// Client talks to one backend instance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL authenticating with
// apiKey.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path, prefer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &Error{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// firstOf unwraps the single-row representation PostgREST returns for
// upserts.
func firstOf[T any](rows []T) (T, error) {
	var zero T
	if len(rows) == 0 {
		return zero, fmt.Errorf("remote: empty representation")
	}
	return rows[0], nil
}

// FetchTasks returns all remote tasks, most recently updated first.
func (c *Client) FetchTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	path := "/rest/v1/tasks?select=" + taskFields + "&order=updated_at.desc"
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchTags returns all remote tags.
func (c *Client) FetchTags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	if err := c.do(ctx, http.MethodGet, "/rest/v1/tags?select=*&order=id.asc", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchProjects returns all remote projects.
func (c *Client) FetchProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, "/rest/v1/projects?select=*&order=id.asc", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertTask inserts or merge-updates a task row by id and returns the
// stored row.
func (c *Client) UpsertTask(ctx context.Context, row TaskRow) (model.Task, error) {
	row.normalize()
	var out []model.Task
	if err := c.do(ctx, http.MethodPost, "/rest/v1/tasks?on_conflict=id", preferUpsert, row, &out); err != nil {
		return model.Task{}, err
	}
	return firstOf(out)
}

// UpsertTag inserts or merge-updates a tag. A nil id lets the server assign
// one.
func (c *Client) UpsertTag(ctx context.Context, name string, id *int64) (model.Tag, error) {
	payload := map[string]any{"name": name}
	if id != nil {
		payload["id"] = *id
	}
	var out []model.Tag
	if err := c.do(ctx, http.MethodPost, "/rest/v1/tags?on_conflict=id", preferUpsert, payload, &out); err != nil {
		return model.Tag{}, err
	}
	return firstOf(out)
}

// UpsertProject inserts or merge-updates a project.
func (c *Client) UpsertProject(ctx context.Context, name string, id, tagID *int64) (model.Project, error) {
	payload := map[string]any{"name": name}
	if id != nil {
		payload["id"] = *id
	}
	if tagID != nil {
		payload["tag_id"] = *tagID
	}
	var out []model.Project
	if err := c.do(ctx, http.MethodPost, "/rest/v1/projects?on_conflict=id", preferUpsert, payload, &out); err != nil {
		return model.Project{}, err
	}
	return firstOf(out)
}

// DeleteTask removes a remote task. Deleting an absent id succeeds.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/rest/v1/tasks?id=eq.%d", id), "", nil, nil)
}

// DeleteTag removes a remote tag.
func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/rest/v1/tags?id=eq.%d", id), "", nil, nil)
}

// DeleteProject removes a remote project.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/rest/v1/projects?id=eq.%d", id), "", nil, nil)
}

// WipeAll deletes every row across the task, tag and project tables. Only
// the refresh flow uses this, right before a full re-push.
func (c *Client) WipeAll(ctx context.Context) error {
	for _, table := range []string{"tasks", "tags", "projects"} {
		if err := c.do(ctx, http.MethodDelete, "/rest/v1/"+table+"?id=gt.0", "", nil, nil); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	return nil
}
