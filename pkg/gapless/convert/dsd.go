package convert

import "github.com/drgolem/gapless/pkg/gapless/format"

// DSDSilence is the DSD idle bit pattern (§6): silence for DSD is 0x0F
// (nibble-wise idle), not 0x00.
const DSDSilence byte = 0x0F

var reverseTable = buildReverseTable()

func buildReverseTable() [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		b := byte(i)
		var r byte
		for bit := 0; bit < 8; bit++ {
			r <<= 1
			r |= b & 1
			b >>= 1
		}
		t[i] = r
	}
	return t
}

// ReverseByte applies the standard 8-bit reversal used when the output
// expects a different DSD bit-endianness than the decoder provides (§6).
func ReverseByte(b byte) byte {
	return reverseTable[b]
}

// DSD converts DSD-encoded audio, reversing bit-endianness per byte when
// the decoder's native bit order differs from the rendering format's.
type DSD struct {
	bytesPerFrame int
	reverseBits   bool
	buf           []byte
}

// NewDSD builds a DSD converter. reverseBits should be true when the
// decoder's DSD bit-endianness differs from the rendering format's.
func NewDSD(fmt_ format.Format, reverseBits bool) *DSD {
	return &DSD{
		bytesPerFrame: fmt_.BytesPerFrame(),
		reverseBits:   reverseBits,
		buf:           make([]byte, 4096),
	}
}

func (d *DSD) Reset() error { return nil }

func (d *DSD) Fill(output []byte, targetFrames int, pull InputProvider) (int, error) {
	needed := targetFrames * d.bytesPerFrame
	if cap(d.buf) < needed {
		d.buf = make([]byte, needed)
	}
	buf := d.buf[:needed]

	n, err := pull(buf, targetFrames)
	if n == 0 {
		return 0, err
	}

	nbytes := n * d.bytesPerFrame
	if d.reverseBits {
		for i := 0; i < nbytes; i++ {
			output[i] = reverseTable[buf[i]]
		}
	} else {
		copy(output[:nbytes], buf[:nbytes])
	}

	return n, err
}

func (d *DSD) Dispose() error { return nil }
