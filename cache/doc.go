// Package cache provides the AppCache backend contract and its Redis and
// process-local implementations.
//
// # Overview
//
// An AppCache stores serialized values under string keys. Keys either live at
// the top level (empty partition) or as fields of a partition hash. Three
// structures sit next to the data:
//
//   - a timeout shadow hash per partition, holding RFC3339 expiry deadlines
//   - custom index entries, a set of member keys (unpartitioned) or a hash of
//     member key to partition key (partitioned)
//   - the AllPartitionNames registry set
//
// Partitioned reads check the shadow first. A passed deadline triggers
// RemoveExpiredItemsFromPartition and the read reports the item as absent.
// Index members that no longer resolve are removed by Find.
//
// # Basic Usage
//
//	c, err := cache.New(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	_ = c.AddOrUpdateContext(ctx, "42", user, time.Hour, "users")
//	_ = c.AddOrUpdateItemOnCustomIndexContext(ctx, "email", user.Email, "42", "users")
//
//	u, ok, err := cache.GetValue[User](ctx, c, "42", "users")
//	matches, err := cache.Find[User](ctx, c, "email", user.Email, "users")
//
// # Sharing a Redis connection
//
// Several backends can share one client through a Conn:
//
//	conn := cache.NewConn(&redis.Options{Addr: "localhost:6379"})
//	users, _ := cache.NewRedis(conn)
//	orders, _ := cache.NewRedis(conn)
//	conn.Close() // the backends keep the client alive until they close
//
// # Error Handling
//
// Absence is never an error. Failures to reach Redis carry the
// ErrBackendUnavailable mark and encode failures surface as
// *SerializationError. Decode failures on read are logged, counted through
// Metrics and treated as absent. Use errors.Is from
// github.com/cockroachdb/errors to test for the marks.
package cache
