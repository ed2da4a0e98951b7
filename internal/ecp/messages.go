package ecp

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ECP-2 request, response and notification names.
const (
	MsgAuthenticate     = "authenticate"
	MsgSetAudioOutput   = "set-audio-output"
	MsgQueryAudioDevice = "query-audio-device"

	// AudioOutputDatagram routes the device audio to a UDP receiver.
	AudioOutputDatagram = "datagram"

	StatusOK           = "200"
	StatusUnauthorized = "401"
)

// Message is the single JSON envelope used in both directions on the ECP-2
// channel. Requests set Request, replies set Response and unsolicited
// events set Notify.
type Message struct {
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
	Notify   string `json:"notify,omitempty"`

	RequestID  string `json:"request-id,omitempty"`
	ResponseID string `json:"response-id,omitempty"`

	Status    string `json:"status,omitempty"`
	StatusMsg string `json:"status-msg,omitempty"`

	ParamChallenge   string `json:"param-challenge,omitempty"`
	ParamResponse    string `json:"param-response,omitempty"`
	ParamAudioOutput string `json:"param-audio-output,omitempty"`
	ParamDevname     string `json:"param-devname,omitempty"`

	ContentData string `json:"content-data,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Kind returns "notify", "response", "request" or "unknown".
func (m Message) Kind() string {
	switch {
	case m.Notify != "":
		return "notify"
	case m.Response != "":
		return "response"
	case m.Request != "":
		return "request"
	default:
		return "unknown"
	}
}

// OK reports whether a response carries status 200.
func (m Message) OK() bool {
	return m.Status == StatusOK
}

// DecodeContent returns the base64-decoded content-data payload.
func (m Message) DecodeContent() (string, error) {
	raw, err := base64.StdEncoding.DecodeString(m.ContentData)
	if err != nil {
		return "", fmt.Errorf("failed to decode content-data: %w", err)
	}
	return string(raw), nil
}

// ParseMessage decodes one text frame.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to parse ECP message: %w", err)
	}
	return m, nil
}

func authenticateRequest(id, challenge string) Message {
	return Message{
		Request:       MsgAuthenticate,
		RequestID:     id,
		ParamResponse: AuthResponse(challenge),
	}
}

func setAudioOutputRequest(id, devname string) Message {
	return Message{
		Request:          MsgSetAudioOutput,
		RequestID:        id,
		ParamAudioOutput: AudioOutputDatagram,
		ParamDevname:     devname,
	}
}

func queryAudioDeviceRequest(id string) Message {
	return Message{
		Request:   MsgQueryAudioDevice,
		RequestID: id,
	}
}
