package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFiles struct {
	mu      sync.Mutex
	stored  map[string]bool
	deleted []string
	seq     int

	PutFunc    func(name string) error
	DeleteFunc func(path string) error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{stored: map[string]bool{}}
}

func (f *fakeFiles) Put(_ context.Context, content io.Reader, name string) (domain.Attachment, error) {
	if f.PutFunc != nil {
		if err := f.PutFunc(name); err != nil {
			return domain.Attachment{}, err
		}
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return domain.Attachment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	path := fmt.Sprintf("2025/01/01/file-%d", f.seq)
	f.stored[path] = true
	return domain.Attachment{Name: name, Path: path, Size: int64(len(data)), MimeType: "text/plain"}, nil
}

func (f *fakeFiles) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	if f.DeleteFunc != nil {
		if err := f.DeleteFunc(path); err != nil {
			return err
		}
	}
	delete(f.stored, path)
	return nil
}

func (f *fakeFiles) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeStatsCache struct {
	mu          sync.Mutex
	version     cache.Version
	entries     map[string]domain.TicketStats
	invalidated int
}

func (c *fakeStatsCache) entryKey(version cache.Version, scope string) string {
	return fmt.Sprintf("v%d:%s", version, scope)
}

func (c *fakeStatsCache) Get(_ context.Context, scope string) (domain.TicketStats, cache.Version, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.entries[c.entryKey(c.version, scope)]
	return stats, c.version, ok
}

func (c *fakeStatsCache) Set(_ context.Context, scope string, version cache.Version, stats domain.TicketStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.entryKey(version, scope)] = stats
}

func (c *fakeStatsCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.version++
	return nil
}

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	clock      *testClock
	files      *fakeFiles
	cache      *fakeStatsCache
	dispatcher events.Dispatcher
	published  *[]events.Event

	tickets    *TicketService
	comments   *CommentService
	stats      *StatsService
	categories *CategoryService
	admins     *AdminService

	admin, agent, owner, other domain.User
	category, inactive         domain.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	files := newFakeFiles()
	statsCache := &fakeStatsCache{entries: map[string]domain.TicketStats{}}
	dispatcher := events.NewInMemoryDispatcher()

	var published []events.Event
	var mu sync.Mutex
	record := func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e)
		return nil
	}
	events.SubscribeAll(dispatcher, events.TicketEventTypes, record)
	events.SubscribeAll(dispatcher, events.CommentEventTypes, record)

	f := &fixture{
		ctx:        ctx,
		store:      store,
		clock:      clock,
		files:      files,
		cache:      statsCache,
		dispatcher: dispatcher,
		published:  &published,
		admin:      domain.User{ID: "u-admin", Name: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin},
		agent:      domain.User{ID: "u-agent", Name: "Alan Agent", Email: "alan@example.com", Role: domain.RoleAgent},
		owner:      domain.User{ID: "u-owner", Name: "Olive Owner", Email: "olive@example.com", Role: domain.RoleUser},
		other:      domain.User{ID: "u-other", Name: "Oscar Other", Email: "oscar@example.com", Role: domain.RoleUser},
		category:   domain.Category{ID: "cat-tech", Name: "Technical", Slug: "technical", Color: "#3B82F6", IsActive: true},
		inactive:   domain.Category{ID: "cat-old", Name: "Legacy", Slug: "legacy", Color: "#6B7280"},
	}
	for _, u := range []domain.User{f.admin, f.agent, f.owner, f.other} {
		u := u
		require.NoError(t, store.Repos().Users.Create(ctx, &u))
	}
	for _, c := range []domain.Category{f.category, f.inactive} {
		c := c
		require.NoError(t, store.Repos().Categories.Create(ctx, &c))
	}

	f.tickets = NewTicketService(TicketDependencies{Store: store, Attachments: files, Dispatcher: dispatcher, Clock: clock.Now})
	f.comments = NewCommentService(CommentDependencies{Store: store, Attachments: files, Dispatcher: dispatcher, Clock: clock.Now})
	f.stats = NewStatsService(StatsDependencies{Store: store, Cache: statsCache, Clock: clock.Now})
	f.stats.RegisterHandlers(dispatcher)
	f.categories = NewCategoryService(store, clock.Now)
	f.admins = NewAdminService(store, f.stats)
	return f
}

func (f *fixture) createTicket(t *testing.T, by domain.User, mutate func(*TicketCreateInput)) *domain.Ticket {
	t.Helper()
	input := TicketCreateInput{
		Title:       "Printer on fire",
		Description: "The office printer is on fire.",
		Priority:    domain.TicketPriorityMedium,
		CategoryID:  f.category.ID,
	}
	if mutate != nil {
		mutate(&input)
	}
	ticket, err := f.tickets.Create(f.ctx, by.Actor(), input)
	require.NoError(t, err)
	return ticket
}

func (f *fixture) publishedEvents() []events.Event {
	return append([]events.Event(nil), (*f.published)...)
}

func ptr[T any](v T) *T {
	return &v
}
