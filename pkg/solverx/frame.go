package solverx

import (
	"encoding/binary"
	"io"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// maxFrameBytes bounds a single frame's payload so a corrupted or
// malicious length prefix cannot force an unbounded allocation.
const maxFrameBytes = 256 << 20

// writeFrame writes a [uint32 length, little-endian][payload] frame
// (spec §4.6's transport framing). encoding/binary is the right and
// only tool for a 4-byte wire primitive; no corpus library offers
// anything better for it.
func writeFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return gaterrors.Wrap(gaterrors.KindProtocolError, "writing frame header", err, nil)
	}
	if _, err := w.Write(payload); err != nil {
		return gaterrors.Wrap(gaterrors.KindProtocolError, "writing frame payload", err, nil)
	}
	return nil
}

// readFrame reads one length-prefixed frame. io.ErrUnexpectedEOF and
// io.EOF on the header read are returned unwrapped so callers can tell
// "the child closed its pipe" (orderly shutdown or crash) apart from a
// framing error mid-payload.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n > maxFrameBytes {
		return nil, gaterrors.New(gaterrors.KindProtocolError, "frame length exceeds maximum", map[string]any{"length": n})
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindProtocolError, "reading frame payload", err, map[string]any{"length": n})
	}
	return payload, nil
}
