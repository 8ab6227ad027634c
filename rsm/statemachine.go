package rsm

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Daniel-LU-JC/CSE-DFS/extent"
)

var log = logrus.WithField("component", "rsm")

// Result is the per-command rendezvous point: the goroutine that submitted
// a Command to the consensus log blocks on Wait until ApplyLog has run it
// and populated the relevant output field, then signals Cond. Grounded
// directly on chfs_command_result's mtx/cv/done fields.
type Result struct {
	mu    sync.Mutex
	cond  *sync.Cond
	Done  bool
	Start time.Time

	ID       uint32
	Buf      []byte
	Attr     extent.Attr
	ApplyErr error
}

// NewResult returns a Result ready to be attached to a Command before
// submission to the consensus log.
func NewResult() *Result {
	r := &Result{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Wait blocks until ApplyLog has marked the result Done.
func (r *Result) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.Done {
		r.cond.Wait()
	}
}

func (r *Result) markDone() {
	r.mu.Lock()
	r.Done = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// ConsensusLog is the minimal surface a replication backend must provide:
// submit a command to be agreed on and eventually applied via StateMachine.
// ApplyLog, and report whether this node currently believes itself leader.
type ConsensusLog interface {
	Submit(cmd Command) (result *Result, isLeader bool)
}

// StateMachine dispatches committed commands into an extent.Service,
// mirroring chfs_state_machine::apply_log's switch over cmd_tp.
type StateMachine struct {
	es *extent.Service
}

// NewStateMachine wraps es for use as a replicated log's apply target.
func NewStateMachine(es *extent.Service) *StateMachine {
	return &StateMachine{es: es}
}

// ApplyLog executes cmd against the extent service and populates result,
// waking any goroutine blocked in result.Wait. It must be invoked by the
// consensus layer for every committed log entry, in log order, exactly
// once each — the same ordering guarantee the source relies on so every
// replica applies the same commands in the same sequence.
func (sm *StateMachine) ApplyLog(cmd Command, result *Result) {
	result.mu.Lock()
	result.Start = time.Now()
	result.mu.Unlock()

	switch cmd.CmdTp {
	case CmdNone:
		// no-op marker entry, used by some consensus libraries to commit a
		// no-op on leader election; nothing to apply.
	case CmdCreate:
		id, err := sm.es.Create(cmd.Type)
		result.mu.Lock()
		result.ID, result.ApplyErr = id, err
		result.mu.Unlock()
	case CmdPut:
		err := sm.es.Put(cmd.ID, cmd.Buf)
		result.mu.Lock()
		result.ApplyErr = err
		result.mu.Unlock()
	case CmdGet:
		buf, err := sm.es.Get(cmd.ID)
		result.mu.Lock()
		result.Buf, result.ApplyErr = buf, err
		result.mu.Unlock()
	case CmdGetAttr:
		attr, err := sm.es.GetAttr(cmd.ID)
		result.mu.Lock()
		result.Attr, result.ApplyErr = attr, err
		result.mu.Unlock()
	case CmdRemove:
		err := sm.es.Remove(cmd.ID)
		result.mu.Lock()
		result.ApplyErr = err
		result.mu.Unlock()
	default:
		log.WithField("cmd_type", cmd.CmdTp).Warn("unknown command type")
	}

	result.markDone()
}
