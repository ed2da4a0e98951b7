// Package session implements the private listening session lifecycle.
//
// A Machine moves between Idle, Connecting and Connected. Every connect
// request is tagged with a token; results carrying an old token are stale
// and only release the handle they bring. Status transitions are delivered
// in order to a single Observer from a separate goroutine, so the observer
// may block or call back into the Machine without stalling it.
//
// Typical use:
//
//	m := session.NewMachine(client, session.WithLogger(logger))
//	m.SetObserver(session.ObserverFunc(func(e session.Event) {
//		fmt.Println(e.Status)
//	}))
//	if err := m.Start("192.168.1.9"); err != nil {
//		// already busy
//	}
//	...
//	m.Stop()
//	m.Shutdown(ctx)
package session
