package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected     SessionState = iota // awaiting channel login
	StateInWorld                           // controlling a creature
	StateDisconnecting                     // closing, no further packets handled
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
// A returned error is handed back to the caller of Dispatch unchanged.
type HandlerFunc func(sess any, p *Packet) error

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps op codes to handlers with state-based access control.
// Registration happens at startup; Dispatch is safe for concurrent use
// once registration is complete.
type Registry struct {
	handlers map[int32]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[int32]*handlerEntry),
		log:      log,
	}
}

// Register maps an op code to a handler, restricted to the given session states.
func (reg *Registry) Register(op int32, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[op] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for p.Op, validates the session state and calls
// the handler. Unknown op codes are logged and ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, p *Packet) error {
	reg.log.Debug("收到封包",
		zap.String("op", fmt.Sprintf("0x%04X", p.Op)),
		zap.Int64("id", p.ID),
		zap.Int("elements", p.Elements()),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[p.Op]
	if !ok {
		reg.log.Debug("未知操作碼", zap.String("op", fmt.Sprintf("0x%04X", p.Op)), zap.String("state", state.String()))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.String("op", fmt.Sprintf("0x%04X", p.Op)),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("op 0x%04X not allowed in state %s", p.Op, state)
	}

	return reg.safeCall(entry.fn, sess, p)
}

// safeCall executes a handler with panic recovery so a single bad packet
// only fails its own connection.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, p *Packet) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.String("op", fmt.Sprintf("0x%04X", p.Op)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for op 0x%04X: %v", p.Op, rec)
		}
	}()
	return fn(sess, p)
}
