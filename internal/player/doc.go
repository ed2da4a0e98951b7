// Package player runs the optional local audio player for a private
// listening session and adapts the ECP client to the session.Protocol port.
//
// The player is an external process (ffplay by default) that receives an
// SDP description on stdin and plays the RTP stream the device sends to
// the announced port. A missing or failing player never fails a session.
package player
