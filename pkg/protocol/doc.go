// Package protocol implements the binary wire format used to mirror a host
// tree to remote viewers.
//
// The server sends a snapshot frame describing the whole tree, then one
// mutation frame per batch of host mutations. Viewers send event frames
// naming the node an event was dispatched at.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Batches too large for one frame are split; every frame but the last of a
// batch is sent without FlagFinal.
//
// # Frame Types
//
//   - FrameSnapshot (0x00): Server → Viewer, mutations that rebuild the tree
//   - FrameEvent (0x01): Viewer → Server events
//   - FrameMutations (0x02): Server → Viewer incremental mutations
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: node IDs, sequence numbers and counts (protobuf-style)
//   - Length-prefixed: strings prefixed with a varint length
//   - Big-endian: fixed-width integers
//
// Example SetText mutation:
//
//	[Op: 0x03][Node: varint][Value: len-prefixed]
package protocol
