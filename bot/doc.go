// Package bot hosts user-supplied video bots: small analysis callbacks
// invoked once per decoded image.
//
// An Environment wires one bot to one video channel. Inbound packets
// flow through the stream abstraction into a decoder; whenever a full
// image is ready the bot callback runs with a Context it can store
// outbound messages into. Buffered messages are flushed to the
// /analysis and /debug subchannels after each callback.
//
// Codec internals live behind the Decoder interface; this package only
// routes bytes.
package bot
