package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

// fakeTx runs fn without a real transaction and counts invocations.
type fakeTx struct {
	calls int
	err   error
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*entities.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*entities.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == user.Username {
			return entities.ErrUsernameTaken
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) Ensure(ctx context.Context, _ *sqlx.Tx, user *entities.User) (bool, error) {
	if existing, err := f.GetByUsername(ctx, user.Username); err == nil {
		*user = *existing
		return false, nil
	}
	return true, f.Create(ctx, user)
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entities.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

type fakeTasks struct {
	tasks   map[int64]*entities.Task
	tags    map[int64][]int64
	nextID  int64
	setErr  error
	updates int
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: map[int64]*entities.Task{}, tags: map[int64][]int64{}}
}

func (f *fakeTasks) seed(ownerID int64, title string) *entities.Task {
	f.nextID++
	t := &entities.Task{ID: f.nextID, Title: title, Priority: entities.PriorityDefault, UserID: ownerID}
	f.tasks[t.ID] = t
	return t
}

func (f *fakeTasks) Create(_ context.Context, _ *sqlx.Tx, task *entities.Task) error {
	f.nextID++
	task.ID = f.nextID
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTasks) GetByID(_ context.Context, id int64) (*entities.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	cp := *t
	cp.Tags = []entities.Tag{}
	for _, tagID := range f.tags[id] {
		cp.Tags = append(cp.Tags, entities.Tag{ID: tagID})
	}
	return &cp, nil
}

func (f *fakeTasks) GetOwnerID(_ context.Context, id int64) (int64, error) {
	t, ok := f.tasks[id]
	if !ok {
		return 0, entities.ErrTaskNotFound
	}
	return t.UserID, nil
}

func (f *fakeTasks) Update(_ context.Context, _ *sqlx.Tx, id int64, patch ports.TaskPatch) error {
	t, ok := f.tasks[id]
	if !ok {
		return entities.ErrTaskNotFound
	}
	f.updates++
	if patch.Title.Set {
		t.Title = patch.Title.Value
	}
	if patch.Description.Set {
		t.Description = patch.Description.Ptr()
	}
	if patch.Completed.Set {
		t.Completed = patch.Completed.Value
	}
	if patch.Priority.Set {
		t.Priority = patch.Priority.Value
	}
	if patch.DueDate.Set {
		t.DueDate = patch.DueDate.Ptr()
	}
	if patch.CategoryID.Set {
		t.CategoryID = patch.CategoryID.Ptr()
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (f *fakeTasks) Delete(_ context.Context, _ *sqlx.Tx, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTasks) List(_ context.Context, filter ports.TaskFilter) ([]*entities.Task, int64, error) {
	all := make([]*entities.Task, 0, len(f.tasks))
	for id := int64(1); id <= f.nextID; id++ {
		t, ok := f.tasks[id]
		if !ok {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		all = append(all, t)
	}
	total := int64(len(all))
	start := filter.Offset()
	if start >= len(all) {
		return []*entities.Task{}, total, nil
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeTasks) Count(_ context.Context) (int64, error) {
	return int64(len(f.tasks)), nil
}

func (f *fakeTasks) SetTags(_ context.Context, _ *sqlx.Tx, taskID int64, tagIDs []int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.tags[taskID] = append(f.tags[taskID], tagIDs...)
	return nil
}

func (f *fakeTasks) DeleteTags(_ context.Context, _ *sqlx.Tx, taskID int64) error {
	delete(f.tags, taskID)
	return nil
}

func (f *fakeTasks) GetTags(_ context.Context, taskIDs []int64) (map[int64][]entities.Tag, error) {
	out := map[int64][]entities.Tag{}
	for _, id := range taskIDs {
		for _, tagID := range f.tags[id] {
			out[id] = append(out[id], entities.Tag{ID: tagID})
		}
	}
	return out, nil
}

type fakeTaxonomy struct {
	categories []*entities.Category
	tags       []*entities.Tag
}

func (f *fakeTaxonomy) ListCategories(context.Context) ([]*entities.Category, error) {
	return f.categories, nil
}

func (f *fakeTaxonomy) ListTags(context.Context) ([]*entities.Tag, error) {
	return f.tags, nil
}

func (f *fakeTaxonomy) CreateCategory(_ context.Context, _ *sqlx.Tx, c *entities.Category) error {
	c.ID = int64(len(f.categories) + 1)
	f.categories = append(f.categories, c)
	return nil
}

func (f *fakeTaxonomy) CreateTag(_ context.Context, _ *sqlx.Tx, t *entities.Tag) error {
	t.ID = int64(len(f.tags) + 1)
	f.tags = append(f.tags, t)
	return nil
}

func (f *fakeTaxonomy) CountCategories(context.Context) (int64, error) {
	return int64(len(f.categories)), nil
}

func (f *fakeTaxonomy) CountTags(context.Context) (int64, error) {
	return int64(len(f.tags)), nil
}

type fakeAttachments struct {
	items  map[int64]*entities.Attachment
	nextID int64
	err    error
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{items: map[int64]*entities.Attachment{}}
}

func (f *fakeAttachments) Create(_ context.Context, a *entities.Attachment) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	a.ID = f.nextID
	f.items[a.ID] = a
	return nil
}

func (f *fakeAttachments) GetByID(_ context.Context, id int64) (*entities.Attachment, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, entities.ErrAttachmentNotFound
	}
	return a, nil
}

func (f *fakeAttachments) ListByTask(_ context.Context, taskID int64) ([]*entities.Attachment, error) {
	out := []*entities.Attachment{}
	for _, a := range f.items {
		if a.TaskID != nil && *a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttachments) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return entities.ErrAttachmentNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeAttachments) DeleteByTask(_ context.Context, _ *sqlx.Tx, taskID int64) error {
	for id, a := range f.items {
		if a.TaskID != nil && *a.TaskID == taskID {
			delete(f.items, id)
		}
	}
	return nil
}

type fakeHistory struct {
	entries []*entities.TaskHistory
}

func (f *fakeHistory) Record(_ context.Context, _ *sqlx.Tx, e *entities.TaskHistory) error {
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) ListByTask(_ context.Context, taskID int64) ([]*entities.TaskHistory, error) {
	out := []*entities.TaskHistory{}
	for _, e := range f.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistory) DeleteByTask(_ context.Context, _ *sqlx.Tx, taskID int64) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.TaskID != taskID {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

type fakeEvents struct {
	keys []string
	err  error
}

func (f *fakeEvents) Publish(_ context.Context, routingKey string, _ any) error {
	f.keys = append(f.keys, routingKey)
	return f.err
}

func (f *fakeEvents) Close() error { return nil }

type fakeHost struct {
	sawFile  bool
	path     string
	err      error
	deleted  []string
	result   ports.ImageResult
	checkFor func(path string) bool
}

func (f *fakeHost) Upload(_ context.Context, path, _ string) (*ports.ImageResult, error) {
	f.path = path
	if f.checkFor != nil {
		f.sawFile = f.checkFor(path)
	}
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	return &res, nil
}

func (f *fakeHost) Delete(_ context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

var errStorage = errors.New("connection reset")
