package protocol

import "testing"

// FuzzDecodeFrame tests that decoding arbitrary bytes doesn't panic.
func FuzzDecodeFrame(f *testing.F) {
	f.Add(NewFrame(FrameEvent, []byte{0x01, 0x02}).Encode())
	f.Add((&Frame{Type: FrameMutations, Payload: []byte("test")}).Encode())

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeFrame(data)
	})
}

// FuzzDecodeBatch checks that any batch that decodes re-encodes to the same
// bytes.
func FuzzDecodeBatch(f *testing.F) {
	f.Add(EncodeBatch(&Batch{Seq: 1, Root: 1, Mutations: sampleMutations()}))
	f.Add([]byte{0x00, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		b, err := DecodeBatch(data)
		if err != nil {
			return
		}
		again, err := DecodeBatch(EncodeBatch(b))
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if len(again.Mutations) != len(b.Mutations) {
			t.Fatalf("re-decode = %d mutations, want %d", len(again.Mutations), len(b.Mutations))
		}
	})
}

// FuzzDecodeEvent tests that decoding arbitrary bytes doesn't panic.
func FuzzDecodeEvent(f *testing.F) {
	f.Add(EncodeEvent(&Event{Seq: 1, Type: EventClick, Node: 1}))
	f.Add(EncodeEvent(&Event{Seq: 2, Type: EventInput, Node: 5, Value: "hello"}))
	f.Add(EncodeEvent(&Event{Seq: 3, Type: EventCustom, Name: "x", Data: map[string]string{"k": "v"}}))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeEvent(data)
	})
}
