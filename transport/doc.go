// Package transport exposes the bridge's inbound surfaces: the init and
// callback HTTP routes and the WebSocket accept path. The browser-facing
// routes only ever render generic pages; real results travel over the
// correlated socket.
package transport
