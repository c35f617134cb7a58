// Package server exposes a parameter set over HTTP and WebSocket.
//
// Every request renders the configured parameters for one session: durable
// values come from the storage backend, scoped by session id, and query
// values come from the location the client reports.
//
// # Routes
//
//	GET  /params          values for the location given by the request query
//	POST /params/{name}   set one value; the body is its JSON
//	GET  /live            WebSocket session (see below)
//	GET  /metrics         Prometheus metrics, when enabled
//	GET  /healthz         liveness
//
// # Live Sessions
//
// A live session keeps one component tree for the lifetime of the
// connection. The client reports navigation and writes; the server answers
// with the URL changes the bindings make and the resulting values. Frames
// are JSON objects with a "type":
//
//	client → server
//	  {"type":"popstate","location":"/list?page=2"}
//	  {"type":"set","name":"page","value":3}
//	  {"type":"ping"}
//
//	server → client
//	  {"type":"hello","session":"…","location":"/","values":{…}}
//	  {"type":"url_push","location":"/?page=3"}
//	  {"type":"url_replace","location":"/?filters=eyJ…"}
//	  {"type":"state","values":{…}}
//	  {"type":"error","code":"E503","error":"…"}
//	  {"type":"pong"}
package server
