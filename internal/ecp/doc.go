// Package ecp speaks the ECP-2 control channel that media players expose
// on /ecp-session.
//
// A session is opened by answering the device's authenticate challenge and
// then asking it to send its audio output as datagrams to this host:
//
//	device -> {"notify":"authenticate","param-challenge":"..."}
//	client -> {"request":"authenticate","request-id":"1","param-response":"..."}
//	device -> {"response":"authenticate","response-id":"1","status":"200"}
//	client -> {"request":"set-audio-output","request-id":"2",
//	           "param-audio-output":"datagram","param-devname":"<ip>:6970"}
//	device -> {"response":"set-audio-output","response-id":"2","status":"200"}
//
// Closing the websocket with a normal-closure frame ends the session.
package ecp
