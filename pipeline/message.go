// Package pipeline is the boundary between a media pipeline framework and
// the wrapped GL objects. Elements post messages on a Bus; a Responder
// installed as the bus sync handler hands them the shared display and
// context and switches the context on and off their streaming threads.
//
// Sync handlers run on the posting goroutine, so everything a Responder
// does happens on the thread of the element that asked for it.
package pipeline

import "fmt"

// MessageType identifies the kind of a bus message.
type MessageType uint8

const (
	MessageNeedContext MessageType = iota + 1
	MessageStreamStatus
	MessageEOS
	MessageError
)

func (t MessageType) String() string {
	switch t {
	case MessageNeedContext:
		return "need-context"
	case MessageStreamStatus:
		return "stream-status"
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// StreamStatusType is the lifecycle phase of a streaming thread.
type StreamStatusType uint8

const (
	StreamStatusCreate StreamStatusType = iota
	StreamStatusEnter
	StreamStatusLeave
	StreamStatusDestroy
)

func (t StreamStatusType) String() string {
	switch t {
	case StreamStatusCreate:
		return "create"
	case StreamStatusEnter:
		return "enter"
	case StreamStatusLeave:
		return "leave"
	case StreamStatusDestroy:
		return "destroy"
	default:
		return fmt.Sprintf("StreamStatusType(%d)", uint8(t))
	}
}

// Message is a notification posted on a Bus. Which fields are meaningful
// depends on Type.
type Message struct {
	Type MessageType
	Src  Element

	// ContextType is the requested context type of a need-context message.
	ContextType string

	// Status and Owner describe a stream-status message. Owner is the
	// element that owns the streaming thread.
	Status StreamStatusType
	Owner  Element

	// Err and Debug describe an error message.
	Err   error
	Debug string
}

// NewNeedContext returns a message asking for a context of type
// contextType on behalf of src.
func NewNeedContext(src Element, contextType string) *Message {
	return &Message{Type: MessageNeedContext, Src: src, ContextType: contextType}
}

// NewStreamStatus returns a message announcing that the streaming thread
// of owner changes to status. It must be posted from that thread.
func NewStreamStatus(src Element, status StreamStatusType, owner Element) *Message {
	return &Message{Type: MessageStreamStatus, Src: src, Status: status, Owner: owner}
}

// NewEOS returns an end-of-stream message.
func NewEOS(src Element) *Message {
	return &Message{Type: MessageEOS, Src: src}
}

// NewError returns an error message.
func NewError(src Element, err error, debug string) *Message {
	return &Message{Type: MessageError, Src: src, Err: err, Debug: debug}
}

func (m *Message) String() string {
	src := "<nil>"
	if m.Src != nil {
		src = m.Src.Name()
	}
	switch m.Type {
	case MessageNeedContext:
		return fmt.Sprintf("%s from %s: %s", m.Type, src, m.ContextType)
	case MessageStreamStatus:
		owner := "<nil>"
		if m.Owner != nil {
			owner = m.Owner.Name()
		}
		return fmt.Sprintf("%s from %s: %s owner=%s", m.Type, src, m.Status, owner)
	case MessageError:
		return fmt.Sprintf("%s from %s: %v", m.Type, src, m.Err)
	default:
		return fmt.Sprintf("%s from %s", m.Type, src)
	}
}
