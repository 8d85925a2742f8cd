// Package taskpool provides a bounded task pool. At most maxParallel tasks run
// at once; callers beyond that limit are suspended, without polling, and
// admitted in the order they arrived.
package taskpool
