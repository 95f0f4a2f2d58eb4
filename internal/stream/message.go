package stream

import (
	"github.com/blackmichael/sea-timeline/internal/normalize"
)

const (
	typeConnect = "connect"
	typePing    = "ping"
	typeMessage = "message"
)

// connectMessage is the handshake that scopes a connection to one stream.
type connectMessage struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Token  string `json:"token"`
}

// pingMessage keeps an idle connection open.
type pingMessage struct {
	Type string `json:"type"`
}

// inbound is a frame received from the server. Content is only meaningful
// for frames of type "message", where it holds a raw post.
type inbound struct {
	Type    string
	Content any
}

func parseInbound(data []byte) (*inbound, error) {
	raw, err := normalize.Decode(data)
	if err != nil {
		return nil, err
	}
	obj, err := normalize.Object(raw, "message")
	if err != nil {
		return nil, err
	}

	// A frame without a string type is not a post, so it is ignored rather
	// than rejected.
	typ, _ := obj["type"].(string)
	return &inbound{Type: typ, Content: obj["content"]}, nil
}
