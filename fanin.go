package gocoord

import "log/slog"

// FanIn merges several Go channels into a single Receiver. One forwarding
// task per input owns a cloned Sender and closes it when its input is
// closed, so the Receiver finishes once every input has been closed.
//
// Values from the same input keep their order; values from different inputs
// interleave arbitrarily. If the Receiver is closed early, the forwarders
// drain and discard the rest of their inputs.
func FanIn[T any](inputs ...<-chan T) *Receiver[T] {
	tx, rx := NewChannel[T]()
	for i, input := range inputs {
		if input == nil {
			panic("gocoord: cannot fan in a nil channel")
		}
		sender := tx.Clone()
		Go(func() {
			defer sender.Close()
			forward(i, input, sender)
		}, WithName("fanin"))
	}
	// The forwarders hold their own clones.
	tx.Close()
	return rx
}

func forward[T any](index int, input <-chan T, sender *Sender[T]) {
	dropped := 0
	for v := range input {
		if dropped > 0 {
			dropped++
			continue
		}
		if err := sender.Send(v); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		slog.Debug("fan-in input drained after receiver closed", "input", index, "dropped", dropped)
	}
}
