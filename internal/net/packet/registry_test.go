package packet

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	errBoom := errors.New("boom")

	var got int32
	reg.Register(OpNpcTalkStart, []SessionState{StateInWorld}, func(sess any, p *Packet) error {
		v, err := p.GetInt()
		got = v
		return err
	})
	reg.Register(OpNpcTalkEnd, []SessionState{StateInWorld}, func(sess any, p *Packet) error {
		return errBoom
	})
	reg.Register(OpGmcpClose, []SessionState{StateInWorld}, func(sess any, p *Packet) error {
		var m map[string]int
		m["x"] = 1 // nil map write
		return nil
	})

	p := New(OpNpcTalkStart, 1)
	p.PutInt(99)
	if err := reg.Dispatch(nil, StateInWorld, reparse(t, p)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != 99 {
		t.Fatalf("handler read %d", got)
	}

	if err := reg.Dispatch(nil, StateConnected, reparse(t, p)); err == nil {
		t.Fatal("dispatch in disallowed state succeeded")
	}
	if err := reg.Dispatch(nil, StateInWorld, New(0x7777, 0)); err != nil {
		t.Fatalf("unknown op = %v, want nil", err)
	}
	if err := reg.Dispatch(nil, StateInWorld, New(OpNpcTalkEnd, 0)); !errors.Is(err, errBoom) {
		t.Fatalf("handler error = %v, want passthrough", err)
	}
	if err := reg.Dispatch(nil, StateInWorld, New(OpGmcpClose, 0)); err == nil {
		t.Fatal("panicking handler returned nil")
	}
}
