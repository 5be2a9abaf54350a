// Package videostream provides an SDK for building video-processing bots
// on top of a persistent RTM pub/sub connection.
//
// # Architecture
//
// The SDK is built from two tightly coupled layers:
//
// Layer 1 - Stream Core (streams package):
//   - Publisher/Subscriber/Subscription with pull-based demand signaling
//   - Operator library: Map, FlatMap, Take, DoFinally, Merge
//   - Cold sources (Of, Range, Generate) that never exceed demand
//   - Hot sources (Async) that drop excess emissions by design
//
// Layer 2 - Messaging (rtm package):
//   - One persistent TLS WebSocket connection per client
//   - Channel subscription registry with request-id correlation
//   - Fire-and-forget publishing
//
// Everything that flows - decoded frames, analysis messages, recorded
// packets - flows through the stream core. External producers are adapted
// into cold or hot publishers; external consumers terminate operator
// chains as subscribers.
//
//	┌─────────────────────────────────────┐
//	│            Bot Environment          │  frame loop, decoder,
//	│     (bot package, explicit ctx)     │  analysis publishing
//	└─────────────────────────────────────┘
//	           ↓ composes via
//	┌─────────────────────────────────────┐
//	│            Stream Core              │  publishers, operators,
//	│          (streams package)          │  demand propagation
//	└─────────────────────────────────────┘
//	           ↓ terminates in
//	┌─────────────────────────────────────┐
//	│          RTM Messaging              │  subscribe/publish over
//	│           (rtm package)             │  one TLS WebSocket
//	└─────────────────────────────────────┘
//
// # Failure model
//
// The SDK fails fast. Protocol desynchronization (an acknowledgement with
// no matching pending request, an unrecognized frame action) tears the
// client down and surfaces a fatal error exactly once; there is no retry
// or reconnect logic at this layer. Supervision belongs to the process
// manager running the bot.
package videostream
