// Package lockservice implements a per-id mutual-exclusion lock: exactly
// one holder at a time per lock id, Acquire blocking until granted.
//
// Grounded on lock_server in original_source/lab2b/lock_server.cc, which
// tracks one condvar+bool pair per lock id under a single guarding mutex.
// This port keeps the "one record per id, created lazily on first use"
// shape but expresses per-id mutual exclusion with a plain sync.Mutex per
// id rather than reimplementing a condvar/bool pair by hand — the source's
// own structure already reduces to a mutex; introducing its signal/bool
// bookkeeping here would be flag-and-wake logic nothing else in this
// module needs.
package lockservice

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "lockservice")

// Server is a mutual-exclusion lock keyed by lock id (here, an extent id).
// Safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	locks    map[uint32]*sync.Mutex
	acquires int
}

// NewServer returns an empty lock table.
func NewServer() *Server {
	return &Server{locks: make(map[uint32]*sync.Mutex)}
}

func (s *Server) lockFor(id uint32) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Acquire blocks until id's lock is available, then holds it.
func (s *Server) Acquire(id uint32) {
	s.lockFor(id).Lock()
	s.mu.Lock()
	s.acquires++
	s.mu.Unlock()
}

// Release gives up id's lock. Releasing a lock not held by the caller is a
// programming error, matching the source's unguarded release path.
func (s *Server) Release(id uint32) {
	s.lockFor(id).Unlock()
}

// Stat returns the cumulative number of successful acquires, matching
// lock_server::stat's nacquire counter (the source never actually
// increments it; this port fixes that so Stat reports something useful).
func (s *Server) Stat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires
}

// Client is the in-process handle fsclient uses to bracket operations on
// an extent id. In the non-replicated deployment (spec.md §4.7) this is a
// direct wrapper over a local Server; a networked deployment would instead
// implement the same interface over RPC, which is why fsclient depends on
// the LockClient interface rather than *Client.
type Client struct {
	srv *Server
}

// NewClient returns a Client bound to srv.
func NewClient(srv *Server) *Client { return &Client{srv: srv} }

// Acquire blocks until lockID is available.
func (c *Client) Acquire(lockID uint32) {
	log.WithField("lock_id", lockID).Debug("acquiring lock")
	c.srv.Acquire(lockID)
}

// Release gives up lockID.
func (c *Client) Release(lockID uint32) {
	c.srv.Release(lockID)
}
