// Package lock provides the lock arena used to serialize writers.
//
// There is one write lock per (owner, project) and one creation lock per
// owner. Each lock is a weighted semaphore of size one, so acquisition can be
// bounded by a timeout. Bulk acquisition over many projects is ordered and
// retrying rather than a single global lock; see Arena.AcquireAll.
//
// Readers never take these locks.
package lock
