package rsm_test

import (
	"sync"

	"github.com/Daniel-LU-JC/CSE-DFS/rsm"
)

// fakeConsensus is a single-node stand-in for a real replicated log: Submit
// applies the command synchronously and always reports itself leader. It
// exists only to exercise rsm.StateMachine.ApplyLog and the Result
// rendezvous without pulling in a real consensus implementation.
type fakeConsensus struct {
	mu sync.Mutex
	sm *rsm.StateMachine
}

func newFakeConsensus(sm *rsm.StateMachine) *fakeConsensus {
	return &fakeConsensus{sm: sm}
}

func (f *fakeConsensus) Submit(cmd rsm.Command) (*rsm.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := rsm.NewResult()
	f.sm.ApplyLog(cmd, result)
	return result, true
}
