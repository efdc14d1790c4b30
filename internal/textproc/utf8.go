// Package textproc turns raw token bytes into text that is safe to show:
// UTF-8 reassembly across token boundaries and removal of control markup.
package textproc

import "strings"

// Reassembler buffers token byte fragments and releases only complete UTF-8
// sequences. After every Push the buffer holds at most a valid prefix of one
// multi-byte sequence.
type Reassembler struct {
	buf []byte
}

// seqLen returns the expected sequence length for a lead byte, or 0 if b
// cannot start a sequence.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b >= 0xC2 && b <= 0xDF:
		return 2
	case b >= 0xE0 && b <= 0xEF:
		return 3
	case b >= 0xF0 && b <= 0xF4:
		return 4
	}
	return 0
}

func isCont(b byte) bool { return b&0xC0 == 0x80 }

// secondOK applies the narrower second-byte ranges that rule out overlong
// forms, surrogates and code points past U+10FFFF.
func secondOK(lead, b byte) bool {
	switch lead {
	case 0xE0:
		return b >= 0xA0 && b <= 0xBF
	case 0xED:
		return b >= 0x80 && b <= 0x9F
	case 0xF0:
		return b >= 0x90 && b <= 0xBF
	case 0xF4:
		return b >= 0x80 && b <= 0x8F
	}
	return isCont(b)
}

// Push appends p and returns all sequences that are now complete.
func (r *Reassembler) Push(p []byte) string {
	r.buf = append(r.buf, p...)
	var out strings.Builder
	i := 0
	for i < len(r.buf) {
		n := seqLen(r.buf[i])
		if n == 0 {
			i++
			continue
		}
		avail := min(n, len(r.buf)-i)
		bad := avail > 1 && !secondOK(r.buf[i], r.buf[i+1])
		for j := 2; j < avail && !bad; j++ {
			bad = !isCont(r.buf[i+j])
		}
		if bad {
			i++
			continue
		}
		if avail < n {
			break
		}
		out.Write(r.buf[i : i+n])
		i += n
	}
	r.buf = append(r.buf[:0], r.buf[i:]...)
	return out.String()
}

// Pending returns the number of buffered bytes.
func (r *Reassembler) Pending() int { return len(r.buf) }

// Reset discards buffered bytes.
func (r *Reassembler) Reset() { r.buf = r.buf[:0] }
