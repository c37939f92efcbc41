// Package nats provides the ingest transport of logd: an embedded NATS
// server, the bridge that feeds published entries into the engine, and the
// publisher used by `logd send`.
//
// # Subject Hierarchy
//
//	logd.logs.{service}   # entries for one service (client → daemon)
//
// A payload is a JSON object or an array of objects:
//
//	{"service":"auth","severity":"warn","message":"token expired"}
//	[{"level":"info","msg":"login"},{"level":"error","msg":"denied"}]
//
// "level" and "msg" are accepted as aliases. When "service" is absent the
// last subject token is used. A missing severity means info. Elements
// without a message are malformed and dropped; the rest of a batch is kept.
//
// Messaging is core NATS (fire-and-forget, no JetStream). Delivery is
// at-least-once from the moment the bridge hands an entry to the engine.
//
// # Debugging with nats CLI
//
// Monitor everything the daemon receives:
//
//	nats sub "logd.logs.>" -s nats://127.0.0.1:4222
//
// Publish an entry by hand:
//
//	nats pub "logd.logs.auth" '{"severity":"warn","message":"manual test"}'
//
// Or use the bundled client:
//
//	logd send --service auth --severity warn manual test
package nats
