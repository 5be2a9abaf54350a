package video

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/c360/videostream/errors"
)

// Channel suffixes of a video stream. Subchannel names follow the
// pattern "<video_channel>/<suffix>", e.g. "test-camera/analysis".
const (
	// FramesChannelSuffix is the main channel carrying frame data.
	FramesChannelSuffix = ""
	// ControlChannelSuffix carries bot control commands.
	ControlChannelSuffix = "/control"
	// MetadataChannelSuffix carries codec-specific metadata.
	MetadataChannelSuffix = "/metadata"
	// AnalysisChannelSuffix carries bot output.
	AnalysisChannelSuffix = "/analysis"
	// DebugChannelSuffix carries bot debugging output.
	DebugChannelSuffix = "/debug"
)

// EncodedPacket is one item of an encoded video stream: either codec
// metadata or a frame.
type EncodedPacket interface {
	isEncodedPacket()
}

// EncodedMetadata describes the codec of the frames that follow it.
type EncodedMetadata struct {
	CodecName string
	CodecData []byte
}

func (EncodedMetadata) isEncodedPacket() {}

// EncodedFrame is one encoded video frame (or frame chunk).
type EncodedFrame struct {
	Data []byte
}

func (EncodedFrame) isEncodedPacket() {}

// wire shapes
type metadataMessage struct {
	CodecName string `json:"codecName"`
	CodecData string `json:"codecData"`
}

type frameMessage struct {
	Data string `json:"d"`
}

// ParseMetadata decodes a metadata channel message.
func ParseMetadata(msg json.RawMessage) (EncodedMetadata, error) {
	var m metadataMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return EncodedMetadata{}, errors.WrapInvalid(err, "video", "ParseMetadata", "unmarshal metadata message")
	}
	data, err := decode64(m.CodecData)
	if err != nil {
		return EncodedMetadata{}, errors.WrapInvalid(err, "video", "ParseMetadata", "decode codec data")
	}
	return EncodedMetadata{CodecName: m.CodecName, CodecData: data}, nil
}

// ParseFrame decodes a frames channel message.
func ParseFrame(msg json.RawMessage) (EncodedFrame, error) {
	var f frameMessage
	if err := json.Unmarshal(msg, &f); err != nil {
		return EncodedFrame{}, errors.WrapInvalid(err, "video", "ParseFrame", "unmarshal frame message")
	}
	data, err := decode64(f.Data)
	if err != nil {
		return EncodedFrame{}, errors.WrapInvalid(err, "video", "ParseFrame", "decode frame data")
	}
	return EncodedFrame{Data: data}, nil
}

// MetadataMessage renders codec metadata in its wire shape.
func MetadataMessage(m EncodedMetadata) any {
	return metadataMessage{
		CodecName: m.CodecName,
		CodecData: base64.StdEncoding.EncodeToString(m.CodecData),
	}
}

// FrameMessage renders a frame in its wire shape.
func FrameMessage(f EncodedFrame) any {
	return frameMessage{Data: base64.StdEncoding.EncodeToString(f.Data)}
}

// decode64 accepts both padded and unpadded base64.
func decode64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
