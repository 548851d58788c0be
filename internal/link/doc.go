// Package link implements the connection lifecycle of a device that keeps one
// framed-message connection open to a fixed endpoint.
//
// A Manager is a state machine with three phases (Disconnected, Connecting,
// Connected). It is driven only by events: periodic ticks and the
// connected/error/closed/received notifications a Transport posts through
// its Notify callback. The manager never blocks and never spawns goroutines;
// an external scheduler serializes every call to Handle and Send.
//
//	Disconnected --tick (reconnect due)--> Connecting
//	Connecting   --connected-------------> Connected
//	Connecting   --error/closed----------> Disconnected
//	Connected    --tick (keep-alive due)-> Connected   (one keep-alive frame)
//	Connected    --received--------------> Connected   (frames decoded and delivered)
//	Connected    --error/closed----------> Disconnected
//	any          --shutdown--------------> Disconnected (terminal)
//
// Reconnects use a fixed interval with no backoff and no retry cap. Sends
// outside Connected are dropped, not queued. Inbound bytes accumulate in a
// fixed buffer until a whole frame is present; a delivery that would
// overflow it is ignored and malformed frames are discarded without tearing
// the connection down.
package link
