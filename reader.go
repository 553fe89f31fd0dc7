package gocoord

import (
	"errors"
	"io"
	"log/slog"
)

// ReaderFunc is the type of the read method used by NewReader. Returning
// io.EOF ends the stream cleanly; any other error fails the reader task.
type ReaderFunc[R any] func() (msg R, err error)

// NewReader spawns a producer task that calls read repeatedly and sends each
// value on sender. The task owns sender and closes it when it stops, so the
// receiver sees the end of this producer's stream.
//
// Join on the returned handle yields the number of values sent. The task
// fails if read returns an error other than io.EOF, if read panics, or if the
// receiver has been closed (the error then wraps ErrChannelClosed).
func NewReader[R any](sender *Sender[R], read ReaderFunc[R], opts ...SpawnOption) *TaskHandle[int] {
	opts = append([]SpawnOption{WithName("reader")}, opts...)
	return Spawn(func() (int, error) {
		defer sender.Close()
		sent := 0
		for {
			msg, err := read()
			if errors.Is(err, io.EOF) {
				slog.Debug("reader finished", "sent", sent)
				return sent, nil
			}
			if err != nil {
				return sent, err
			}
			if err := sender.Send(msg); err != nil {
				return sent, err
			}
			sent++
		}
	}, opts...)
}

// SliceReader returns a ReaderFunc that yields the items in order and then
// io.EOF.
func SliceReader[R any](items []R) ReaderFunc[R] {
	next := 0
	return func() (R, error) {
		if next >= len(items) {
			var zero R
			return zero, io.EOF
		}
		v := items[next]
		next++
		return v, nil
	}
}
