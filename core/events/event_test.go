package events

import (
	"math/big"
	"testing"
)

type recordingEmitter struct {
	received []Event
}

func (r *recordingEmitter) Emit(evt Event) { r.received = append(r.received, evt) }

func TestMultiEmitterFansOut(t *testing.T) {
	first := &recordingEmitter{}
	second := &recordingEmitter{}
	multi := MultiEmitter{first, nil, second}

	evt := Staked{AssetID: 7, Weight: big.NewInt(100)}
	multi.Emit(evt)

	for name, sink := range map[string]*recordingEmitter{"first": first, "second": second} {
		if len(sink.received) != 1 {
			t.Fatalf("%s emitter received %d events", name, len(sink.received))
		}
		if sink.received[0].EventType() != TypeStaked {
			t.Fatalf("%s emitter received %s", name, sink.received[0].EventType())
		}
	}
}

func TestNoopEmitterDiscards(t *testing.T) {
	// Must not panic on any payload, including nil.
	NoopEmitter{}.Emit(nil)
	NoopEmitter{}.Emit(Unstaked{AssetID: 1})
}
