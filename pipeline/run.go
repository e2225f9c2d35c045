package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrPipeline is returned by Run for an error message from the bus.
var ErrPipeline = errors.New("pipeline: error message")

// Run drains bus until end of stream. An error message ends the loop with
// an error that wraps both ErrPipeline and the posted error.
func Run(ctx context.Context, bus *Bus) error {
	for {
		msg, err := bus.Pop(ctx)
		if err != nil {
			return err
		}
		switch msg.Type {
		case MessageEOS:
			return nil
		case MessageError:
			src := "<nil>"
			if msg.Src != nil {
				src = msg.Src.Name()
			}
			return fmt.Errorf("%w from %s: %w (%s)", ErrPipeline, src, msg.Err, msg.Debug)
		}
	}
}
