// Package video adapts the messaging client and local files into the
// stream abstraction: channel sources and sinks for encoded video
// packets, plus simple file-backed sources and sinks for offline work.
//
// A video stream spans two channels: the main channel carries frame
// packets and the /metadata subchannel carries infrequent codec
// metadata (for h264, the SPS and PPS). ChannelSource subscribes to
// both and merges them into one packet stream; ChannelSink splits a
// packet stream back onto the two channels.
package video
