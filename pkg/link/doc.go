// Package link provides the framed packet link between the charger
// controller and the network bridge.
package link

// Frames travel over a byte stream (usually a UART) as
//
//   AA CMD LEN_LO LEN_HI SEQ PAYLOAD... CHECKSUM 55
//
// where CHECKSUM is the XOR of CMD, both length bytes, SEQ and every
// payload byte. The payload carries at most MaxPayload bytes, but only
// frames fitting in the RingBuffer (payloads up to RingCapacity-MinFrameSize
// bytes) can be received.
//
// The receive side accumulates bytes in a fixed RingBuffer and extracts
// frames with a Parser which recovers from noise, truncation and corruption
// by dropping bytes until a valid frame lines up again. A partial frame that
// sees no new byte for ParseTimeout is discarded.
//
// Link ties the ring, the parser and a Transport together. It is driven by
// calling Poll periodically from a single goroutine and is considered
// connected while valid packets keep arriving within LivenessTimeout.
