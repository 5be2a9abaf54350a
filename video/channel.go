package video

import (
	"encoding/json"
	"log/slog"

	"github.com/c360/videostream/errors"
	"github.com/c360/videostream/rtm"
	"github.com/c360/videostream/streams"
)

// Messenger is the slice of the messaging client the video adapters
// need. *rtm.Client satisfies it.
type Messenger interface {
	Subscribe(channel string, callbacks rtm.SubscriptionCallbacks, opts *rtm.SubscribeOptions) error
	Unsubscribe(channel string) error
	Publish(channel string, message any) error
}

// ChannelSource streams encoded packets from a video channel. It
// subscribes to the frames channel and to the /metadata subchannel (with
// one historical message, so a late joiner still sees the codec
// configuration) and merges both into one packet stream.
//
// The source is hot and best-effort: a live channel cannot be paused, so
// packets arriving without downstream demand are dropped.
func ChannelSource(client Messenger, channel string, logger *slog.Logger) streams.Publisher[EncodedPacket] {
	if logger == nil {
		logger = slog.Default()
	}
	return streams.Async(func(sink streams.Observer[EncodedPacket]) {
		metadataChannel := channel + MetadataChannelSuffix

		err := client.Subscribe(metadataChannel, rtm.SubscriptionCallbacks{
			OnData: func(msg json.RawMessage) {
				m, err := ParseMetadata(msg)
				if err != nil {
					logger.Warn("dropping malformed metadata message", "channel", metadataChannel, "error", err)
					return
				}
				sink.OnNext(m)
			},
			OnError: func(err error) { sink.OnError(err) },
		}, &rtm.SubscribeOptions{History: &rtm.History{Count: 1}})
		if err != nil {
			sink.OnError(errors.WrapTransient(err, "video", "ChannelSource", "subscribe metadata channel"))
			return
		}

		err = client.Subscribe(channel+FramesChannelSuffix, rtm.SubscriptionCallbacks{
			OnData: func(msg json.RawMessage) {
				f, err := ParseFrame(msg)
				if err != nil {
					logger.Warn("dropping malformed frame message", "channel", channel, "error", err)
					return
				}
				sink.OnNext(f)
			},
			OnError: func(err error) { sink.OnError(err) },
		}, nil)
		if err != nil {
			sink.OnError(errors.WrapTransient(err, "video", "ChannelSource", "subscribe frames channel"))
		}
	})
}

// ChannelSink terminates a packet stream in the messaging client:
// frames are published to the video channel, metadata to its /metadata
// subchannel. Packets are pulled one at a time.
type ChannelSink struct {
	client  Messenger
	channel string
	logger  *slog.Logger

	source streams.Subscription

	// Done and Failure, when set, observe the stream's terminal signal.
	Done    func()
	Failure func(error)
}

// NewChannelSink creates a sink publishing to the given video channel.
func NewChannelSink(client Messenger, channel string, logger *slog.Logger) *ChannelSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelSink{client: client, channel: channel, logger: logger}
}

// OnSubscribe implements streams.Subscriber.
func (s *ChannelSink) OnSubscribe(sub streams.Subscription) {
	s.source = sub
	sub.Request(1)
}

// OnNext implements streams.Subscriber.
func (s *ChannelSink) OnNext(p EncodedPacket) {
	var err error
	switch packet := p.(type) {
	case EncodedMetadata:
		err = s.client.Publish(s.channel+MetadataChannelSuffix, MetadataMessage(packet))
	case EncodedFrame:
		err = s.client.Publish(s.channel+FramesChannelSuffix, FrameMessage(packet))
	}
	if err != nil {
		s.logger.Error("publish failed, stopping stream", "channel", s.channel, "error", err)
		s.source.Cancel()
		if s.Failure != nil {
			s.Failure(err)
		}
		return
	}
	s.source.Request(1)
}

// OnError implements streams.Subscriber.
func (s *ChannelSink) OnError(err error) {
	s.logger.Error("stream failed", "channel", s.channel, "error", err)
	if s.Failure != nil {
		s.Failure(err)
	}
}

// OnComplete implements streams.Subscriber.
func (s *ChannelSink) OnComplete() {
	s.logger.Info("stream complete", "channel", s.channel)
	if s.Done != nil {
		s.Done()
	}
}
