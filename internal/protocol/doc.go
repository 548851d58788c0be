// Package protocol implements the frame codec used on the device link.
//
// Frames follow the RFC 6455 base framing layout. The codec is pure: it
// performs no I/O and keeps no state between calls, so every function is safe
// for concurrent use.
//
// # Wire Format
//
//	Byte 0: bit 7 FIN, bits 6-4 RSV1-3, bits 3-0 opcode
//	Byte 1: bit 7 MASK, bits 6-0 payload length
//	        126 -> 16-bit big-endian length follows
//	        127 -> 64-bit big-endian length follows
//	Mask key: 4 bytes, present when MASK is set
//	Payload: XORed with the mask key repeated cyclically when MASK is set
//
// # Encoding
//
// Encode writes into a caller-owned buffer and reports ErrOverflow instead of
// truncating when the buffer is too small:
//
//	buf := make([]byte, 2048)
//	n, err := protocol.Encode(buf, protocol.OpText, []byte("hello"), true, nil)
//	if err != nil {
//	    return err
//	}
//	send(buf[:n])
//
// # Decoding
//
// Decode works on whatever bytes have been received so far. A chunk that ends
// before the frame does is reported as ErrIncomplete and left untouched:
//
//	h, err := protocol.Decode(chunk)
//	switch {
//	case errors.Is(err, protocol.ErrIncomplete):
//	    // wait for more bytes
//	case err != nil:
//	    // drop the frame
//	default:
//	    deliver(h.Opcode, h.Payload(chunk))
//	    chunk = chunk[h.FrameLength():]
//	}
//
// Fragmentation is modelled (Header.Final, OpContinuation) but messages are
// not reassembled here. Control frames of any length or fragmentation encode
// and decode like data frames; CheckControl applies the RFC 6455 limits.
package protocol
