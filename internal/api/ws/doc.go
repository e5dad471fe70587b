// Package ws streams tab events to WebSocket clients.
//
// Clients connect to /ws/tabs for every tab or /ws/tabs/:id for one.
// Each event is sent as one JSON text message. Clients may send
// {"type":"ping"} and {"type":"snapshot"}; replies are interleaved with
// the event stream. A per-tab stream ends with a close frame after the
// tab's "closed" event.
package ws
