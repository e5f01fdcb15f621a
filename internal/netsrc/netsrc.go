// Package netsrc implements the net producer family: construction parses
// an externally supplied SDP offer to populate meta.media.* properties,
// and externally-delivered RTP packets are counted onto
// meta.media.packets/meta.media.last_ntp. Actual RTP depacketization and
// media decoding stay the out-of-scope "external collaborator" (spec §1);
// this producer still emits the black/silence test frame required of
// every producer per §4.6.3 (SPEC_FULL.md §7.x / domain stack).
package netsrc

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pion/rtp/v2"
	psdp "github.com/pion/sdp/v3"

	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
)

// Net is a network-sourced producer backed by a Colour test generator,
// grounded on the teacher's `pkg/video/data.go` RTP-packet-carrying
// interface and `pkg/video/gortsplib/track.go`'s SDP media-description
// parsing, narrowed to metadata extraction only.
type Net struct {
	*producer.Colour

	mu      sync.Mutex
	packets int64
}

// NewFromSDP parses sdpBody and returns a Net producer whose properties
// carry whatever codec/clock-rate/channel metadata the first media
// description's rtpmap attribute names. length is the producer's frame
// count in the test generator's own timebase.
func NewFromSDP(p profile.Profile, sdpBody string, length int64) (*Net, error) {
	var desc psdp.SessionDescription
	if err := desc.Unmarshal([]byte(sdpBody)); err != nil {
		return nil, fmt.Errorf("parse sdp: %w", err)
	}

	n := &Net{Colour: producer.NewColour(p, "0x000000ff", length)}
	props := n.Svc().Properties()
	props.Set("resource", "net")
	props.Set("mlt_service", "net")

	if len(desc.MediaDescriptions) > 0 {
		if codec, clockRate, channels, ok := parseRTPMap(desc.MediaDescriptions[0]); ok {
			props.Set("meta.media.codec", codec)
			if clockRate > 0 {
				props.SetInt("meta.media.clock_rate", int64(clockRate))
			}
			if channels > 0 {
				props.SetInt("meta.media.channels", int64(channels))
			}
		}
	}
	return n, nil
}

// parseRTPMap extracts "codec/clockrate[/channels]" from md's rtpmap
// attribute, the same attribute-walk the teacher's track.go performs.
func parseRTPMap(md *psdp.MediaDescription) (codec string, clockRate, channels int, ok bool) {
	rtpmap, found := md.Attribute("rtpmap")
	if !found {
		return "", 0, 0, false
	}
	fields := strings.SplitN(strings.TrimSpace(rtpmap), " ", 2)
	if len(fields) != 2 {
		return "", 0, 0, false
	}
	parts := strings.Split(fields[1], "/")
	codec = parts[0]
	if len(parts) > 1 {
		clockRate, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		channels, _ = strconv.Atoi(parts[2])
	}
	return codec, clockRate, channels, true
}

// IngestPacket counts one externally-delivered RTP packet, updating
// meta.media.packets and meta.media.last_ntp. It does not depacketize
// or decode pkt's payload.
func (n *Net) IngestPacket(pkt *rtp.Packet, arrival time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.packets++

	props := n.Svc().Properties()
	props.SetInt("meta.media.packets", n.packets)
	props.SetInt("meta.media.last_ntp", arrival.UnixNano())
}
