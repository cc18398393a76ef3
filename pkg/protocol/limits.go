package protocol

// Decoding limits. They bound what a malicious peer can make the decoder
// allocate.
const (
	// MaxStringLength bounds any single decoded string.
	MaxStringLength = 64 * 1024

	// MaxMutationsPerFrame bounds the mutation count of one frame. A frame
	// payload cannot hold more than MaxPayloadSize bytes anyway; each
	// mutation takes at least two.
	MaxMutationsPerFrame = MaxPayloadSize / 2

	// MaxEventData bounds the entries of an event's Data map.
	MaxEventData = 256
)
