package bot

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/c360/videostream/pkg/buffer"
)

// MessageKind selects the subchannel an outbound bot message goes to.
type MessageKind int

const (
	// MessageAnalysis is regular bot output, published to /analysis.
	MessageAnalysis MessageKind = iota
	// MessageDebug is debugging output, published to /debug.
	MessageDebug
)

// String returns the string representation of MessageKind
func (k MessageKind) String() string {
	switch k {
	case MessageAnalysis:
		return "analysis"
	case MessageDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Message is one outbound bot message awaiting flush.
type Message struct {
	Kind MessageKind
	Data any
}

// Image is one decoded video frame handed to the bot callback.
type Image struct {
	Data     []byte
	Width    int
	Height   int
	LineSize int
}

// Decoder turns encoded packets into images. Implementations wrap a
// codec library; the environment only routes bytes through it.
type Decoder interface {
	SetMetadata(codecName string, codecData []byte) error
	ProcessFrame(data []byte) error
	FrameReady() bool
	Image() Image
}

// DecoderFactory creates a decoder scaled to the bot's requested
// dimensions.
type DecoderFactory func(width, height int) (Decoder, error)

// Callback is the bot analysis entry point, invoked once per decoded
// image.
type Callback func(ctx *Context, img Image)

// ControlCallback receives messages from the /control subchannel.
type ControlCallback func(ctx *Context, msg json.RawMessage)

// Descriptor declares a bot: its image geometry and callbacks.
type Descriptor struct {
	Name        string
	ImageWidth  int
	ImageHeight int
	Callback    Callback
	OnControl   ControlCallback
}

// Context is the per-bot state handed to every callback invocation. It
// replaces process-global bot state with an explicit object constructed
// at startup.
type Context struct {
	id       string
	params   json.RawMessage
	messages buffer.Buffer[Message]
}

// defaultMessageBuffer bounds outbound messages held between flushes.
const defaultMessageBuffer = 256

func newContext(params json.RawMessage, bufferSize int) *Context {
	if bufferSize <= 0 {
		bufferSize = defaultMessageBuffer
	}
	messages := buffer.New[Message](bufferSize,
		buffer.WithOverflowPolicy[Message](buffer.DropOldest))
	return &Context{
		id:       uuid.NewString(),
		params:   params,
		messages: messages,
	}
}

// ID is the unique instance id of this bot run.
func (c *Context) ID() string { return c.id }

// Params returns the raw bot parameters from configuration.
func (c *Context) Params() json.RawMessage { return c.params }

// SendMessage buffers an outbound message. It is published after the
// current callback returns.
func (c *Context) SendMessage(kind MessageKind, data any) {
	c.messages.Write(Message{Kind: kind, Data: data})
}

// drain removes and returns all buffered messages in order.
func (c *Context) drain() []Message {
	return c.messages.ReadBatch(c.messages.Size())
}
