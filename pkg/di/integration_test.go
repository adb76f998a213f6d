package di

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-cacherepo/cache"
	"github.com/goliatone/go-cacherepo/repositorycache"
	"github.com/uptrace/bun"
)

// User represents a test model for integration tests
type User struct {
	ID       string `json:"id" bun:"id,pk"`
	Name     string `json:"name" bun:"name"`
	Email    string `json:"email" bun:"email"`
	CreateTs int64  `json:"create_ts" bun:"create_ts"`
}

var errUserNotFound = errors.New("user not found")

// mockUserRepository is an in-memory repository that counts calls so tests
// can tell cache hits from database reads
type mockUserRepository struct {
	mu        sync.RWMutex
	users     map[string]User
	callCount map[string]int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:     make(map[string]User),
		callCount: make(map[string]int),
	}
}

func (m *mockUserRepository) trackCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount[method]++
}

func (m *mockUserRepository) getCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[method]
}

func (m *mockUserRepository) seed(users ...User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range users {
		m.users[u.ID] = u
	}
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (User, error) {
	m.trackCall("GetByID")
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, exists := m.users[id]
	if !exists {
		return User{}, errUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) Get(ctx context.Context, criteria ...repository.SelectCriteria) (User, error) {
	m.trackCall("Get")
	users, _, _ := m.snapshot()
	if len(users) == 0 {
		return User{}, errUserNotFound
	}
	return users[0], nil
}

func (m *mockUserRepository) snapshot() ([]User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, len(users), nil
}

func (m *mockUserRepository) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]User, int, error) {
	m.trackCall("List")
	return m.snapshot()
}

func (m *mockUserRepository) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.trackCall("Count")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *mockUserRepository) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (User, error) {
	m.trackCall("GetByIdentifier")
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == identifier {
			return u, nil
		}
	}
	return User{}, errUserNotFound
}

func (m *mockUserRepository) Create(ctx context.Context, user User, criteria ...repository.InsertCriteria) (User, error) {
	m.trackCall("Create")
	if user.CreateTs == 0 {
		user.CreateTs = time.Now().Unix()
	}
	m.seed(user)
	return user, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user User, criteria ...repository.UpdateCriteria) (User, error) {
	m.trackCall("Update")
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.ID]; !exists {
		return User{}, errUserNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, user User) error {
	m.trackCall("Delete")
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, user.ID)
	return nil
}

func (m *mockUserRepository) CreateTx(ctx context.Context, tx bun.IDB, record User, criteria ...repository.InsertCriteria) (User, error) {
	return m.Create(ctx, record, criteria...)
}
func (m *mockUserRepository) CreateMany(ctx context.Context, records []User, criteria ...repository.InsertCriteria) ([]User, error) {
	out := make([]User, 0, len(records))
	for _, record := range records {
		created, _ := m.Create(ctx, record, criteria...)
		out = append(out, created)
	}
	return out, nil
}
func (m *mockUserRepository) CreateManyTx(ctx context.Context, tx bun.IDB, records []User, criteria ...repository.InsertCriteria) ([]User, error) {
	return m.CreateMany(ctx, records, criteria...)
}
func (m *mockUserRepository) GetOrCreate(ctx context.Context, record User) (User, error) {
	m.mu.RLock()
	existing, exists := m.users[record.ID]
	m.mu.RUnlock()
	if exists {
		return existing, nil
	}
	return m.Create(ctx, record)
}
func (m *mockUserRepository) GetOrCreateTx(ctx context.Context, tx bun.IDB, record User) (User, error) {
	return m.GetOrCreate(ctx, record)
}
func (m *mockUserRepository) UpdateTx(ctx context.Context, tx bun.IDB, record User, criteria ...repository.UpdateCriteria) (User, error) {
	return m.Update(ctx, record, criteria...)
}
func (m *mockUserRepository) UpdateMany(ctx context.Context, records []User, criteria ...repository.UpdateCriteria) ([]User, error) {
	for _, record := range records {
		if _, err := m.Update(ctx, record, criteria...); err != nil {
			return nil, err
		}
	}
	return records, nil
}
func (m *mockUserRepository) UpdateManyTx(ctx context.Context, tx bun.IDB, records []User, criteria ...repository.UpdateCriteria) ([]User, error) {
	return m.UpdateMany(ctx, records, criteria...)
}
func (m *mockUserRepository) Upsert(ctx context.Context, record User, criteria ...repository.UpdateCriteria) (User, error) {
	m.trackCall("Upsert")
	m.seed(record)
	return record, nil
}
func (m *mockUserRepository) UpsertTx(ctx context.Context, tx bun.IDB, record User, criteria ...repository.UpdateCriteria) (User, error) {
	return m.Upsert(ctx, record, criteria...)
}
func (m *mockUserRepository) UpsertMany(ctx context.Context, records []User, criteria ...repository.UpdateCriteria) ([]User, error) {
	for _, record := range records {
		m.Upsert(ctx, record, criteria...)
	}
	return records, nil
}
func (m *mockUserRepository) UpsertManyTx(ctx context.Context, tx bun.IDB, records []User, criteria ...repository.UpdateCriteria) ([]User, error) {
	return m.UpsertMany(ctx, records, criteria...)
}
func (m *mockUserRepository) DeleteTx(ctx context.Context, tx bun.IDB, record User) error {
	return m.Delete(ctx, record)
}
func (m *mockUserRepository) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.trackCall("DeleteMany")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]User)
	return nil
}
func (m *mockUserRepository) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return m.DeleteMany(ctx, criteria...)
}
func (m *mockUserRepository) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return m.DeleteMany(ctx, criteria...)
}
func (m *mockUserRepository) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return m.DeleteWhere(ctx, criteria...)
}
func (m *mockUserRepository) ForceDelete(ctx context.Context, record User) error {
	return m.Delete(ctx, record)
}
func (m *mockUserRepository) ForceDeleteTx(ctx context.Context, tx bun.IDB, record User) error {
	return m.ForceDelete(ctx, record)
}
func (m *mockUserRepository) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (User, error) {
	return m.Get(ctx, criteria...)
}
func (m *mockUserRepository) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (User, error) {
	return m.GetByID(ctx, id, criteria...)
}
func (m *mockUserRepository) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]User, int, error) {
	return m.List(ctx, criteria...)
}
func (m *mockUserRepository) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return m.Count(ctx, criteria...)
}
func (m *mockUserRepository) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (User, error) {
	return m.GetByIdentifier(ctx, identifier, criteria...)
}
func (m *mockUserRepository) Raw(ctx context.Context, sql string, args ...any) ([]User, error) {
	m.trackCall("Raw")
	return nil, errors.New("raw queries not supported in mock")
}
func (m *mockUserRepository) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]User, error) {
	return m.Raw(ctx, sql, args...)
}
func (m *mockUserRepository) Handlers() repository.ModelHandlers[User] {
	return repository.ModelHandlers[User]{}
}

// Interface assertion to ensure mockUserRepository implements Repository[User]
var _ repository.Repository[User] = (*mockUserRepository)(nil)

func byEmail(u User) string { return u.Email }

// containers builds one container per backend
func containers(t *testing.T) map[string]*Container {
	t.Helper()

	local, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("failed to create local container: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })

	mr := miniredis.RunT(t)
	config := cache.DefaultConfig()
	config.Backend = cache.BackendRedis
	config.Redis.Addr = mr.Addr()
	remote, err := NewContainer(config)
	if err != nil {
		t.Fatalf("failed to create redis container: %v", err)
	}
	t.Cleanup(func() { _ = remote.Close() })

	return map[string]*Container{"local": local, "redis": remote}
}

// TestEndToEndCachedRepositoryFlow exercises the wiring from container to
// decorator against both backends
func TestEndToEndCachedRepositoryFlow(t *testing.T) {
	for name, container := range containers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := newMockUserRepository()
			cached := NewCachedRepository[User](container, base,
				repositorycache.WithCustomIndex("email", byEmail))

			ada := User{ID: "user-1", Name: "Ada", Email: "ada@example.com", CreateTs: 1}
			if _, err := cached.Create(ctx, ada); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			user, err := cached.GetByID(ctx, "user-1")
			if err != nil {
				t.Fatalf("GetByID failed: %v", err)
			}
			if user != ada {
				t.Errorf("expected %+v, got %+v", ada, user)
			}
			if calls := base.getCallCount("GetByID"); calls != 0 {
				t.Errorf("expected GetByID to be served from cache after Create, got %d base calls", calls)
			}

			matches, err := cached.Cache().Find(ctx, "email", "ada@example.com")
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if len(matches) != 1 || matches[0].ID != "user-1" {
				t.Errorf("expected index hit for user-1, got %v", matches)
			}

			ada.Email = "ada@lovelace.dev"
			if _, err := cached.Update(ctx, ada); err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			stale, _ := cached.Cache().Find(ctx, "email", "ada@example.com")
			if len(stale) != 0 {
				t.Errorf("expected old email to be unindexed, got %v", stale)
			}

			if err := cached.Delete(ctx, ada); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := cached.GetByID(ctx, "user-1"); !errors.Is(err, errUserNotFound) {
				t.Errorf("expected not found after delete, got %v", err)
			}
		})
	}
}

// TestListColdStart checks that the first List reaches the database and the
// second one is answered by the cache
func TestListColdStart(t *testing.T) {
	for name, container := range containers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := newMockUserRepository()
			base.seed(
				User{ID: "a", Name: "A"},
				User{ID: "b", Name: "B"},
			)
			cached := NewCachedRepository[User](container, base)

			// a single-item read must not make the partition look complete
			if _, err := cached.GetByID(ctx, "a"); err != nil {
				t.Fatalf("GetByID failed: %v", err)
			}

			users, total, err := cached.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if total != 2 || len(users) != 2 {
				t.Fatalf("expected 2 users, got %d (total %d)", len(users), total)
			}
			if calls := base.getCallCount("List"); calls != 1 {
				t.Errorf("expected first List to hit the database once, got %d", calls)
			}

			users, _, err = cached.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(users) != 2 {
				t.Errorf("expected 2 cached users, got %d", len(users))
			}
			if calls := base.getCallCount("List"); calls != 1 {
				t.Errorf("expected second List to be served from cache, got %d database calls", calls)
			}
		})
	}
}

func TestCacheEvictionFlow(t *testing.T) {
	for name, container := range containers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := newMockUserRepository()
			cached := NewCachedRepository[User](container, base)

			users := []User{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}}
			if _, err := cached.CreateMany(ctx, users); err != nil {
				t.Fatalf("CreateMany failed: %v", err)
			}

			if err := cached.DeleteMany(ctx); err != nil {
				t.Fatalf("DeleteMany failed: %v", err)
			}

			remaining, err := cached.Cache().GetAll(ctx, true)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(remaining) != 0 {
				t.Errorf("expected DeleteMany to evict the partition, got %v", remaining)
			}
		})
	}
}

func TestTransactionalWritesEvict(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	base := newMockUserRepository()
	cached := NewCachedRepository[User](container, base)

	u := User{ID: "tx-1", Name: "before"}
	if _, err := cached.Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u.Name = "after"
	if _, err := cached.UpdateTx(ctx, nil, u); err != nil {
		t.Fatalf("UpdateTx failed: %v", err)
	}

	if _, ok, _ := cached.Cache().Get(ctx, "tx-1"); ok {
		t.Fatal("expected UpdateTx to evict the cached copy")
	}

	got, err := cached.GetByID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "after" {
		t.Errorf("expected committed state, got %q", got.Name)
	}
}

func TestErrorPropagation(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	cached := NewCachedRepository[User](container, newMockUserRepository())

	if _, err := cached.GetByID(ctx, "ghost"); !errors.Is(err, errUserNotFound) {
		t.Errorf("expected errUserNotFound, got %v", err)
	}
	if _, err := cached.Update(ctx, User{ID: "ghost"}); !errors.Is(err, errUserNotFound) {
		t.Errorf("expected errUserNotFound from Update, got %v", err)
	}
	if _, ok, _ := cached.Cache().Get(ctx, "ghost"); ok {
		t.Error("failed operations must not populate the cache")
	}
	if _, err := cached.Raw(ctx, "SELECT 1"); err == nil {
		t.Error("expected Raw error to propagate")
	}
}

// Product is a second model sharing the container cache
type Product struct {
	ProductID string
	Name      string
}

func TestDifferentRepositoryTypes(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	users := NewCacheRepo[User](container)
	products := NewCacheRepo[Product](container)

	if users.PartitionName() == products.PartitionName() {
		t.Fatalf("expected distinct partitions, both are %q", users.PartitionName())
	}

	if err := users.AddOrUpdate(ctx, User{ID: "1", Name: "Ada"}); err != nil {
		t.Fatalf("AddOrUpdate user failed: %v", err)
	}
	if err := products.AddOrUpdate(ctx, Product{ProductID: "1", Name: "Widget"}); err != nil {
		t.Fatalf("AddOrUpdate product failed: %v", err)
	}

	u, ok, err := users.Get(ctx, "1")
	if err != nil || !ok || u.Name != "Ada" {
		t.Errorf("expected user Ada, got %+v ok=%v err=%v", u, ok, err)
	}
	p, ok, err := products.Get(ctx, "1")
	if err != nil || !ok || p.Name != "Widget" {
		t.Errorf("expected product Widget, got %+v ok=%v err=%v", p, ok, err)
	}

	names, err := container.AppCache().GetAllPartitionNamesContext(ctx)
	if err != nil {
		t.Fatalf("GetAllPartitionNames failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 registered partitions, got %v", names)
	}
}
