package player

import (
	"bytes"
	"fmt"
	"text/template"
)

// sdpTemplate describes the RTP stream the device sends: one Opus stereo
// track on the configured port.
const sdpTemplate = `v=0
o=- 0 0 IN IP4 {{.Address}}
s=-
c=IN IP4 {{.Address}}
m=audio {{.RTPPort}} RTP/AVP {{.PayloadType}}
a=rtpmap:{{.PayloadType}} {{.Codec}}
`

var sdp = template.Must(template.New("sdp").Parse(sdpTemplate))

// RenderSDP renders the session description fed to the player.
func RenderSDP(cfg Config) (string, error) {
	var buf bytes.Buffer
	if err := sdp.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to render SDP: %w", err)
	}
	return buf.String(), nil
}
