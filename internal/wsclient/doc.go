// Package wsclient is the upstream consumer: it maintains exactly one
// read-only session against the game feed, decodes its Engine.IO/Socket.IO
// packet framing on top of a plain WebSocket, and hands off raw event
// tuples for the router to validate and persist.
package wsclient
