// Package broadcast forwards engine events to a presentation server over
// Socket.IO, so an editor front end can render cell state as it changes.
package broadcast
