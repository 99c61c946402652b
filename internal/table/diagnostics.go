package table

import (
	"fmt"

	"github.com/cepruntime/tablestore/internal/event"
)

// maxPayloadPreview bounds how much of a dropped/failed chunk's payload
// gets logged — truncated rather than logged verbatim.
const maxPayloadPreview = 1

func previewStream(chunk *event.Chunk[event.StreamEvent]) string {
	events := chunk.Events()
	if len(events) == 0 {
		return "<empty chunk>"
	}
	if len(events) <= maxPayloadPreview {
		return fmt.Sprintf("%v", events[0].Row)
	}
	return fmt.Sprintf("%v (+%d more)", events[0].Row, len(events)-1)
}

func previewState(chunk *event.Chunk[event.StateEvent]) string {
	events := chunk.Events()
	if len(events) == 0 {
		return "<empty chunk>"
	}
	if len(events) <= maxPayloadPreview {
		return fmt.Sprintf("%v", events[0].Stream.Row)
	}
	return fmt.Sprintf("%v (+%d more)", events[0].Stream.Row, len(events)-1)
}

func previewMatching(e event.StateEvent) string {
	return fmt.Sprintf("%v", e.Stream.Row)
}
