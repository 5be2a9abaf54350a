package video

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/c360/videostream/errors"
	"github.com/c360/videostream/streams"
)

// LineSource emits the lines of a reader one per item, without the
// trailing newline. It is cold: lines are read only as demand arrives.
func LineSource(r io.Reader) streams.Publisher[string] {
	return streams.Generate(
		func() *bufio.Scanner {
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			return scanner
		},
		func(scanner *bufio.Scanner, n int, sink streams.Observer[string]) {
			for i := 0; i < n; i++ {
				if !scanner.Scan() {
					if err := scanner.Err(); err != nil {
						sink.OnError(errors.WrapTransient(err, "video", "LineSource", "read line"))
						return
					}
					sink.OnComplete()
					return
				}
				sink.OnNext(scanner.Text())
			}
		})
}

// FileLineSource is LineSource over a file. The file is closed when the
// stream terminates on any path.
func FileLineSource(path string) (streams.Publisher[string], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "video", "FileLineSource", "open input file")
	}
	return streams.DoFinally(LineSource(f), func() { _ = f.Close() }), nil
}

// PacketSource replays packets recorded as JSON lines, one wire-shape
// message per line: metadata messages carry "codecName", everything else
// is a frame message. It is cold, like the file it reads.
func PacketSource(r io.Reader) streams.Publisher[EncodedPacket] {
	return streams.FlatMap(LineSource(r), func(line string) streams.Publisher[EncodedPacket] {
		if strings.TrimSpace(line) == "" {
			return streams.Empty[EncodedPacket]()
		}
		p, err := parsePacketLine(line)
		if err != nil {
			return streams.Error[EncodedPacket](err)
		}
		return streams.Of(p)
	})
}

func parsePacketLine(line string) (EncodedPacket, error) {
	raw := json.RawMessage(line)
	var probe struct {
		CodecName *string `json:"codecName"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.WrapInvalid(err, "video", "PacketSource", "parse recorded packet")
	}
	if probe.CodecName != nil {
		return ParseMetadata(raw)
	}
	return ParseFrame(raw)
}

// FileSink appends the raw bytes of every frame packet to w, pulling one
// packet at a time. Metadata packets are skipped. A write failure cancels
// the stream.
type FileSink struct {
	w      io.Writer
	source streams.Subscription

	// Err holds the first write or stream error once the stream ends.
	Err error
}

// NewFileSink creates a sink writing frame data to w.
func NewFileSink(w io.Writer) *FileSink {
	return &FileSink{w: w}
}

// OnSubscribe implements streams.Subscriber.
func (s *FileSink) OnSubscribe(sub streams.Subscription) {
	s.source = sub
	sub.Request(1)
}

// OnNext implements streams.Subscriber.
func (s *FileSink) OnNext(p EncodedPacket) {
	if frame, ok := p.(EncodedFrame); ok {
		if _, err := s.w.Write(frame.Data); err != nil {
			s.Err = errors.WrapTransient(err, "video", "FileSink", "write frame")
			s.source.Cancel()
			return
		}
	}
	s.source.Request(1)
}

// OnError implements streams.Subscriber.
func (s *FileSink) OnError(err error) {
	s.Err = err
}

// OnComplete implements streams.Subscriber.
func (s *FileSink) OnComplete() {}
