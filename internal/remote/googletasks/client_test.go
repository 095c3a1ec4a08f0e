package googletasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/dori/todosync/internal/model"
)

// fakeAPI serves the subset of the Google Tasks REST API the client uses
type fakeAPI struct {
	mu     sync.Mutex
	lists  []*tasks.TaskList
	items  map[string][]*tasks.Task // list id -> tasks
	nextID int
	pos    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string][]*tasks.Task), pos: 1000000}
}

func (f *fakeAPI) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) notFound(w http.ResponseWriter) {
	f.writeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{"code": 404, "message": "Not Found"},
	})
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/v1/"), "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "lists":
		if r.Method == http.MethodPost {
			var l tasks.TaskList
			json.NewDecoder(r.Body).Decode(&l)
			f.nextID++
			l.Id = fmt.Sprintf("list-%d", f.nextID)
			f.lists = append(f.lists, &l)
			f.writeJSON(w, http.StatusOK, l)
			return
		}
		f.writeJSON(w, http.StatusOK, tasks.TaskLists{Items: f.lists})

	case len(parts) == 3 && parts[0] == "lists" && parts[2] == "tasks":
		listID := parts[1]
		if r.Method == http.MethodPost {
			var t tasks.Task
			json.NewDecoder(r.Body).Decode(&t)
			f.nextID++
			f.pos--
			t.Id = fmt.Sprintf("task-%d", f.nextID)
			t.Position = fmt.Sprintf("%020d", f.pos)
			t.Updated = time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC).Format(time.RFC3339)
			f.items[listID] = append(f.items[listID], &t)
			f.writeJSON(w, http.StatusOK, t)
			return
		}
		f.writeJSON(w, http.StatusOK, tasks.Tasks{Items: f.items[listID]})

	case len(parts) >= 4 && parts[0] == "lists" && parts[2] == "tasks":
		listID, taskID := parts[1], parts[3]
		i := slices.IndexFunc(f.items[listID], func(t *tasks.Task) bool { return t.Id == taskID })
		if i < 0 {
			f.notFound(w)
			return
		}
		switch {
		case len(parts) == 5 && parts[4] == "move":
			f.move(listID, i, r.URL.Query().Get("previous"))
			f.writeJSON(w, http.StatusOK, f.items[listID][0])
		case r.Method == http.MethodPut:
			var t tasks.Task
			json.NewDecoder(r.Body).Decode(&t)
			t.Position = f.items[listID][i].Position
			t.Updated = "updated"
			f.items[listID][i] = &t
			f.writeJSON(w, http.StatusOK, t)
		case r.Method == http.MethodDelete:
			f.items[listID] = slices.Delete(f.items[listID], i, i+1)
			w.WriteHeader(http.StatusNoContent)
		default:
			f.writeJSON(w, http.StatusOK, f.items[listID][i])
		}

	default:
		f.notFound(w)
	}
}

// move renumbers positions so the task sits right after previous
func (f *fakeAPI) move(listID string, i int, previous string) {
	items := slices.Clone(f.items[listID])
	slices.SortFunc(items, func(a, b *tasks.Task) int { return strings.Compare(a.Position, b.Position) })
	j := slices.IndexFunc(items, func(t *tasks.Task) bool { return t.Id == f.items[listID][i].Id })
	moved := items[j]
	items = slices.Delete(items, j, j+1)

	at := 0
	if previous != "" {
		at = slices.IndexFunc(items, func(t *tasks.Task) bool { return t.Id == previous }) + 1
	}
	items = slices.Insert(items, at, moved)
	for k, t := range items {
		t.Position = fmt.Sprintf("%020d", k)
	}
	f.items[listID] = items
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(context.Background(), srv.Client(), srv.URL+"/",
		WithListName("todosync"), WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWithHTTPClient failed: %v", err)
	}
	return c, api
}

func TestSignInCreatesListOnce(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	first, err := c.SignIn(ctx)
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	second, err := c.SignIn(ctx)
	if err != nil {
		t.Fatalf("second SignIn failed: %v", err)
	}
	if first != second {
		t.Errorf("expected the same list, got %q and %q", first, second)
	}
	if len(api.lists) != 1 {
		t.Errorf("expected one list, got %d", len(api.lists))
	}
}

func TestCreateUpdateDeleteRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	listID, err := c.SignIn(ctx)
	if err != nil {
		t.Fatal(err)
	}

	task := model.Task{
		ID: "local-1", Text: "Standup", Due: "2024-01-01T09:30",
		Recurrence: model.RecurrenceWeekly, Tags: []string{"work"},
	}
	remoteID, err := c.Create(ctx, listID, task)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := c.Fetch(ctx, listID)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 task, got %d", len(got))
	}
	want := task
	want.RemoteID = remoteID
	if !got[0].SameContent(want) || got[0].RemoteID != remoteID {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], want)
	}

	task.Completed = true
	task.Text = "Standup (done)"
	if err := c.Update(ctx, listID, remoteID, task); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ = c.Fetch(ctx, listID)
	if !got[0].Completed || got[0].Text != "Standup (done)" {
		t.Errorf("update not visible: %+v", got[0])
	}

	if err := c.Delete(ctx, listID, remoteID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(ctx, listID, remoteID); err != nil {
		t.Errorf("deleting a missing task should succeed, got %v", err)
	}
	got, _ = c.Fetch(ctx, listID)
	if len(got) != 0 {
		t.Errorf("expected empty list, got %+v", got)
	}
}

func TestFetchKeepsCreationOrderAndMoves(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	listID, _ := c.SignIn(ctx)

	ids := map[string]string{}
	for _, id := range []string{"a", "b", "c"} {
		rid, err := c.Create(ctx, listID, model.Task{ID: id, Text: strings.ToUpper(id)})
		if err != nil {
			t.Fatal(err)
		}
		ids[id] = rid
	}

	order := func() []string {
		got, err := c.Fetch(ctx, listID)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, task := range got {
			out = append(out, task.ID)
		}
		return out
	}
	if got := order(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected creation order, got %v", got)
	}

	// c to the front, then a to the end
	if err := c.Move(ctx, listID, ids["c"], ids["a"]); err != nil {
		t.Fatal(err)
	}
	if got := order(); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("after first move got %v", got)
	}
	if err := c.Move(ctx, listID, ids["a"], ""); err != nil {
		t.Fatal(err)
	}
	if got := order(); !slices.Equal(got, []string{"c", "b", "a"}) {
		t.Fatalf("after second move got %v", got)
	}
}

func TestFromAPIForeignTask(t *testing.T) {
	item := &tasks.Task{
		Id: "xyz", Title: "Made on phone", Status: "completed",
		Due: "2024-02-10T00:00:00.000Z", Notes: "just a note",
	}
	got := fromAPI(item)
	if got.ID != "g-xyz" || got.RemoteID != "xyz" || !got.Completed {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.Due != "2024-02-10" || got.Recurrence != model.RecurrenceNone {
		t.Errorf("unexpected due/recurrence: %q %q", got.Due, got.Recurrence)
	}
}

func TestToCollectionDeduplicatesIDs(t *testing.T) {
	notes := toAPI(model.Task{ID: "same", Text: "x"}).Notes
	items := []*tasks.Task{
		{Id: "r1", Title: "one", Notes: notes, Position: "2"},
		{Id: "r2", Title: "two", Notes: notes, Position: "1"},
	}
	got := toCollection(items)
	if got[0].ID != "same" || got[1].ID != "g-r2" {
		t.Errorf("expected unique ids, got %q and %q", got[0].ID, got[1].ID)
	}
}

func TestSubscribeEmitsOnChange(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	listID, _ := c.SignIn(ctx)

	sub, err := c.Subscribe(ctx, listID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	next := func() model.Collection {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				t.Fatal("subscription closed early")
			}
			return snap
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
		return nil
	}

	if snap := next(); len(snap) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", snap)
	}
	if _, err := c.Create(ctx, listID, model.Task{ID: "a", Text: "A"}); err != nil {
		t.Fatal(err)
	}
	if snap := next(); len(snap) != 1 || snap[0].ID != "a" {
		t.Fatalf("expected snapshot with the new task, got %+v", snap)
	}

	sub.Close()
	for range sub.Snapshots() {
	}
}
