// Package server implements the WebSocket peer that picolink devices
// connect to.
//
// The server is a bench and test counterpart to the device link. It accepts
// upgrade requests on a configured path, logs every frame, echoes text and
// binary messages back, answers pings and pushes a status line on a fixed
// interval so the device display has something to show.
//
// # Device Exchange
//
//	device                             server
//	  | GET / HTTP/1.1 (Upgrade)          |
//	  |---------------------------------->|
//	  |          HTTP/1.1 101 ...         |
//	  |<----------------------------------|
//	  | text "hello"                      |
//	  |---------------------------------->|
//	  |                text "echo: hello" |
//	  |<----------------------------------|
//	  |         text "up 5s, 1 received"  |
//	  |<----------------------------------|
//	  | ping                              |
//	  |---------------------------------->|
//	  |                              pong |
//	  |<----------------------------------|
//
// # Capture
//
// When Config.CaptureDir is set, every frame in either direction is written
// to a JSON Lines file through the capture package.
//
// # Discovery
//
// With Config.Advertise the server registers itself over mDNS so devices
// without a fixed remote address can find it.
//
// # Usage
//
//	srv, err := server.New(server.Config{
//	    Listen:         ":8082",
//	    StatusInterval: 5 * time.Second,
//	    Advertise:      true,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
