package bot

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/videostream/errors"
	"github.com/c360/videostream/metric"
	"github.com/c360/videostream/rtm"
	"github.com/c360/videostream/streams"
	"github.com/c360/videostream/video"
)

// Environment wires one bot to one video channel: packets in, decoded
// images through the bot callback, buffered messages out.
type Environment struct {
	client     video.Messenger
	channel    string
	descriptor Descriptor
	newDecoder DecoderFactory
	logger     *slog.Logger
	metrics    *metric.Metrics

	ctx     *Context
	decoder Decoder
	source  streams.Publisher[video.EncodedPacket]

	stopOnce sync.Once
	stopped  chan struct{}
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithLogger sets the environment's logger.
func WithLogger(logger *slog.Logger) EnvironmentOption {
	return func(e *Environment) { e.logger = logger }
}

// WithMetrics attaches SDK metrics.
func WithMetrics(m *metric.Metrics) EnvironmentOption {
	return func(e *Environment) { e.metrics = m }
}

// WithParams passes raw bot parameters from configuration to the
// Context.
func WithParams(params json.RawMessage) EnvironmentOption {
	return func(e *Environment) { e.ctx.params = params }
}

// WithMessageBuffer bounds the outbound message buffer.
func WithMessageBuffer(size int) EnvironmentOption {
	return func(e *Environment) { e.ctx = newContext(e.ctx.params, size) }
}

// WithSource overrides the packet source. Used by tests and by offline
// tooling feeding recorded packets instead of a live channel.
func WithSource(src streams.Publisher[video.EncodedPacket]) EnvironmentOption {
	return func(e *Environment) { e.source = src }
}

// NewEnvironment creates an environment for one bot on one channel.
func NewEnvironment(client video.Messenger, channel string, descriptor Descriptor,
	factory DecoderFactory, opts ...EnvironmentOption) (*Environment, error) {
	if descriptor.Callback == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "bot", "NewEnvironment",
			"descriptor has no callback")
	}
	if factory == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "bot", "NewEnvironment",
			"no decoder factory")
	}

	e := &Environment{
		client:     client,
		channel:    channel,
		descriptor: descriptor,
		newDecoder: factory,
		logger:     slog.Default(),
		ctx:        newContext(nil, 0),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Context returns the bot's context object.
func (e *Environment) Context() *Context { return e.ctx }

// Run subscribes the bot to its channels and processes packets until the
// stream terminates. The returned error is the stream's terminal error,
// or nil on clean completion.
func (e *Environment) Run() error {
	if e.descriptor.OnControl != nil {
		controlChannel := e.channel + video.ControlChannelSuffix
		err := e.client.Subscribe(controlChannel, rtm.SubscriptionCallbacks{
			OnData: func(msg json.RawMessage) {
				e.descriptor.OnControl(e.ctx, msg)
				e.flush()
			},
			OnError: func(err error) {
				e.logger.Error("control channel failed", "channel", controlChannel, "error", err)
			},
		}, nil)
		if err != nil {
			return errors.WrapTransient(err, "bot", "Run", "subscribe control channel")
		}
	}

	source := e.source
	if source == nil {
		source = video.ChannelSource(e.client, e.channel, e.logger)
	}

	var terminal error
	done := make(chan struct{})
	var sub streams.Subscription
	source.Subscribe(&streams.SubscriberFuncs[video.EncodedPacket]{
		Subscribed: func(s streams.Subscription) {
			sub = s
			s.Request(1)
		},
		Next: func(p video.EncodedPacket) {
			e.onPacket(p)
			sub.Request(1)
		},
		Complete: func() {
			e.logger.Info("video stream complete", "channel", e.channel)
			close(done)
		},
		Error: func(err error) {
			terminal = err
			close(done)
		},
	})

	select {
	case <-done:
	case <-e.stopped:
		sub.Cancel()
	}
	return terminal
}

// Stop cancels the packet stream and unblocks Run. It is idempotent.
func (e *Environment) Stop() {
	e.stopOnce.Do(func() { close(e.stopped) })
}

func (e *Environment) onPacket(p video.EncodedPacket) {
	switch packet := p.(type) {
	case video.EncodedMetadata:
		e.onMetadata(packet)
	case video.EncodedFrame:
		e.onFrame(packet)
	}
}

func (e *Environment) onMetadata(m video.EncodedMetadata) {
	if e.decoder == nil {
		decoder, err := e.newDecoder(e.descriptor.ImageWidth, e.descriptor.ImageHeight)
		if err != nil {
			e.logger.Error("decoder creation failed", "error", err)
			e.recordError("decoder")
			return
		}
		e.decoder = decoder
	}
	if err := e.decoder.SetMetadata(m.CodecName, m.CodecData); err != nil {
		e.logger.Error("decoder rejected metadata", "codec", m.CodecName, "error", err)
		e.recordError("decoder")
		return
	}
	e.logger.Info("video decoder initialized", "codec", m.CodecName)
}

func (e *Environment) onFrame(f video.EncodedFrame) {
	if e.decoder == nil {
		// frames before metadata cannot be decoded
		return
	}
	if err := e.decoder.ProcessFrame(f.Data); err != nil {
		e.logger.Warn("frame decode failed", "error", err)
		e.recordError("decoder")
		return
	}
	if !e.decoder.FrameReady() {
		return
	}

	start := time.Now()
	e.descriptor.Callback(e.ctx, e.decoder.Image())
	if e.metrics != nil {
		e.metrics.RecordProcessingDuration("bot", "callback", time.Since(start))
	}
	e.flush()
}

// flush publishes every buffered bot message to its subchannel.
func (e *Environment) flush() {
	for _, msg := range e.ctx.drain() {
		var suffix string
		switch msg.Kind {
		case MessageAnalysis:
			suffix = video.AnalysisChannelSuffix
		case MessageDebug:
			suffix = video.DebugChannelSuffix
		default:
			continue
		}
		if err := e.client.Publish(e.channel+suffix, msg.Data); err != nil {
			e.logger.Error("bot message publish failed", "kind", msg.Kind.String(), "error", err)
			e.recordError("publish")
		}
	}
}

func (e *Environment) recordError(errorType string) {
	if e.metrics != nil {
		e.metrics.RecordError("bot", errorType)
	}
}
