// Package repositorycache provides a typed cache-aside repository and a cached
// decorator for go-repository-bun repositories.
//
// # Overview
//
// CacheRepo[T] stores entities of one type in a single cache partition, keyed
// by their primary id, and keeps any number of exact-match secondary indexes
// in sync with them. CachedRepository[T] wraps a repository.Repository[T] and
// answers reads from a CacheRepo, filling it from the database on a miss.
//
// # Basic Usage
//
//	c, err := cache.New(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	users := repositorycache.NewCacheRepo[User](c,
//		repositorycache.WithCustomIndex("email", func(u User) string { return u.Email }),
//		repositorycache.WithEntryTTL[User](time.Hour),
//	)
//
//	_ = users.AddOrUpdate(ctx, user)
//	u, ok, err := users.Get(ctx, user.ID)
//	byEmail, err := users.Find(ctx, "email", user.Email)
//
// # Identifiers and Partitions
//
// The primary id is the first exported field named Id, <TypeName>Id or
// EntityId, compared case-insensitively. Types without one need
// WithIdentifierLocator; otherwise writes fail with *MissingIdentifierError.
// Partitions default to the snake_case type name followed by the package
// path, see DefaultPartitionName.
//
// # Cold-Start Gate
//
// GetAll cannot tell a fully loaded partition from one holding a handful of
// entries written by single-item reads. The first GetAll for a type, and the
// first after its marker expires, returns an empty slice so the caller loads
// the complete set from the database and writes it back. Pass
// skipConsistencyCheck to read whatever the partition holds.
//
// # Cached Repository
//
// Reads without criteria go through the cache:
//   - GetByID returns the cached entity or loads and caches it
//   - List uses GetAll and reloads the full set when the gate answers empty
//
// Writes reach the database first. Successful non-transactional writes refresh
// the cached copy; transactional writes and deletes evict it, because the
// transaction may still roll back. DeleteMany and DeleteWhere evict the whole
// partition. Everything else passes straight through.
//
// Cache failures are logged and never fail an operation the base repository
// completed. Errors from the base repository are returned unchanged.
//
// # Dependency Injection
//
//	container, err := di.NewContainer(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	cached := di.NewCachedRepository[User](container, baseRepo)
package repositorycache
