// Package rtm implements the messaging client for the videostream SDK:
// one persistent TLS WebSocket carrying JSON frames, multiplexing many
// named channel subscriptions with request-id correlation.
//
// # Registry state machine
//
// Each subscribed channel holds one registry record moving through
// PendingSubscribe → Current → PendingUnsubscribe → removed. A subscribe
// error removes a PendingSubscribe record; an unsubscribe acknowledgement
// removes a PendingUnsubscribe record whether it reports success or
// failure — unsubscription is terminal once requested. Data frames for a
// Current channel are delivered to the registered callbacks; data frames
// for a PendingUnsubscribe channel are silently discarded.
//
// # Failure stance
//
// The client fails fast. An acknowledgement with no matching pending
// request, a data frame for an unknown channel, or an unrecognized frame
// action is a protocol desynchronization: the client tears the connection
// down, errors every registered subscription, and surfaces one fatal
// error through the client error callback. There is no retry or reconnect
// at this layer; that responsibility belongs to a supervising layer.
package rtm
