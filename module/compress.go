package module

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Compression header constants.
const (
	// CompressionHeaderSize is the size of the header preceding the deflate stream:
	// HEADER_SIZE(2) + METHOD(1) + WINDOW_BITS(1) + ORIGINAL_SIZE(4)
	CompressionHeaderSize = 8

	// CompressionMethodDeflate is raw deflate without zlib framing
	CompressionMethodDeflate = 0

	// CompressionWindowBits is the deflate window recorded in the header
	CompressionWindowBits = 15
)

// CompressionHeader precedes the deflate stream in a compressed payload.
type CompressionHeader struct {
	HeaderSize   uint16 `json:"headerSize"`
	Method       uint8  `json:"method"`
	WindowBits   uint8  `json:"windowBits"`
	OriginalSize uint32 `json:"originalSize"`
}

// ReadCompressionHeader decodes the header at the start of a compressed payload.
func ReadCompressionHeader(payload []byte) (*CompressionHeader, error) {
	if len(payload) < CompressionHeaderSize {
		return nil, &MalformedError{Field: "compression header", Need: CompressionHeaderSize, Have: len(payload)}
	}
	h := &CompressionHeader{
		HeaderSize:   binary.LittleEndian.Uint16(payload[0:2]),
		Method:       payload[2],
		WindowBits:   payload[3],
		OriginalSize: binary.LittleEndian.Uint32(payload[4:8]),
	}
	if h.HeaderSize < CompressionHeaderSize || int(h.HeaderSize) > len(payload) {
		return nil, fmt.Errorf("%w: header size %d", ErrUnsupportedCompression, h.HeaderSize)
	}
	if h.Method != CompressionMethodDeflate {
		return nil, fmt.Errorf("%w: method %d", ErrUnsupportedCompression, h.Method)
	}
	return h, nil
}

func (h *CompressionHeader) marshal() []byte {
	b := make([]byte, CompressionHeaderSize)
	binary.LittleEndian.PutUint16(b[0:2], h.HeaderSize)
	b[2] = h.Method
	b[3] = h.WindowBits
	binary.LittleEndian.PutUint32(b[4:8], h.OriginalSize)
	return b
}

// CompressModule deflates the payload of the module in buf and returns a new
// buffer. The prefix end address is moved by the size change, FlagCompressed
// is set and the checksums are recomputed unless disabled by option.
//
// Returns ErrAlreadyCompressed if the module is already compressed.
//
// Example:
//
//	out, err := module.CompressModule(buf, module.WithCompressionLevel(flate.BestSpeed))
func CompressModule(buf []byte, opts ...Option) ([]byte, error) {
	p := NewParser(opts...)
	info, err := p.ParseBuffer(buf)
	if err != nil {
		return nil, err
	}
	if info.Prefix.Flags.Has(FlagCompressed) {
		return nil, ErrAlreadyCompressed
	}

	payload := info.Payload(buf)
	var z bytes.Buffer
	w, err := flate.NewWriter(&z, p.config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}

	hdr := &CompressionHeader{
		HeaderSize:   CompressionHeaderSize,
		Method:       CompressionMethodDeflate,
		WindowBits:   CompressionWindowBits,
		OriginalSize: uint32(len(payload)),
	}
	body := append(hdr.marshal(), z.Bytes()...)

	return p.replacePayload(buf, info, body, info.Prefix.Flags|FlagCompressed)
}

// DecompressModule inflates the payload of a compressed module and returns a
// new buffer with FlagCompressed cleared.
//
// Returns ErrNotCompressed if the flag is not set, ErrUnsupportedCompression
// for an unknown header and ErrSizeMismatch if the inflated size differs from
// the recorded original size.
func DecompressModule(buf []byte, opts ...Option) ([]byte, error) {
	p := NewParser(opts...)
	info, err := p.ParseBuffer(buf)
	if err != nil {
		return nil, err
	}
	if !info.Prefix.Flags.Has(FlagCompressed) {
		return nil, ErrNotCompressed
	}

	payload := info.Payload(buf)
	hdr, err := ReadCompressionHeader(payload)
	if err != nil {
		return nil, err
	}

	r := flate.NewReader(bytes.NewReader(payload[hdr.HeaderSize:]))
	defer r.Close()
	// Read one byte past the recorded size so a longer stream is detected.
	plain, err := io.ReadAll(io.LimitReader(r, int64(hdr.OriginalSize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	if len(plain) != int(hdr.OriginalSize) {
		return nil, fmt.Errorf("%w: header says %d bytes, got %d", ErrSizeMismatch, hdr.OriginalSize, len(plain))
	}

	return p.replacePayload(buf, info, plain, info.Prefix.Flags&^FlagCompressed)
}

// replacePayload builds a copy of the module with a new payload, adjusted end
// address and flags, then recomputes checksums. Bytes after the first module
// are copied unchanged.
func (p *Parser) replacePayload(buf []byte, info *Info, payload []byte, flags Flags) ([]byte, error) {
	head := buf[:info.PayloadStart()]
	tail := buf[info.SuffixStart():info.Length]

	out := make([]byte, 0, len(head)+len(payload)+len(tail)+len(buf)-info.Length)
	out = append(out, head...)
	out = append(out, payload...)
	out = append(out, tail...)
	newLen := len(out)
	out = append(out, buf[info.Length:]...)

	delta := int64(newLen) - int64(info.Length)
	end := int64(info.Prefix.EndAddress) + delta
	if end < int64(info.Prefix.StartAddress) || end > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: end address out of range after resize", ErrMalformed)
	}

	putFlags(out, info.Prefix.Offset, flags)
	putEndAddress(out, info.Prefix.Offset, uint32(end))

	if err := p.config.updateChecksums(out[:newLen]); err != nil {
		return nil, err
	}
	return out, nil
}
