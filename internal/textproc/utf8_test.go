package textproc

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReassemblerSplitsMultiByte(t *testing.T) {
	var r Reassembler
	word := []byte("안녕") // two 3-byte runes
	var got strings.Builder
	for i := range word {
		got.WriteString(r.Push(word[i : i+1]))
		if i == 0 || i == 1 {
			if got.Len() != 0 {
				t.Fatalf("released partial rune after %d bytes", i+1)
			}
		}
	}
	if got.String() != "안녕" {
		t.Fatalf("got %q", got.String())
	}
	if r.Pending() != 0 {
		t.Fatalf("pending=%d", r.Pending())
	}
}

func TestReassemblerMixedBoundaries(t *testing.T) {
	var r Reassembler
	in := []byte("a€b😀c")
	chunks := [][]byte{in[:2], in[2:3], in[3:6], in[6:8], in[8:]}
	var got strings.Builder
	for _, c := range chunks {
		got.WriteString(r.Push(c))
	}
	if got.String() != "a€b😀c" {
		t.Fatalf("got %q", got.String())
	}
}

func TestReassemblerDropsInvalidLead(t *testing.T) {
	var r Reassembler
	out := r.Push([]byte{0x80, 'a', 0xFF, 'b'})
	if out != "ab" {
		t.Fatalf("got %q", out)
	}
	// A lead byte followed by a non-continuation is dropped alone.
	out = r.Push([]byte{0xE3, 'x'})
	if out != "x" {
		t.Fatalf("got %q", out)
	}
	// Overlong encodings are rejected.
	out = r.Push([]byte{0xC0, 0xAF, 'y'})
	if out != "y" {
		t.Fatalf("got %q", out)
	}
}

func TestReassemblerHoldsOnlyValidPrefix(t *testing.T) {
	var r Reassembler
	r.Push([]byte{0xF0, 0x9F})
	if r.Pending() != 2 {
		t.Fatalf("pending=%d", r.Pending())
	}
	r.Reset()
	if r.Pending() != 0 {
		t.Fatalf("reset left %d bytes", r.Pending())
	}
}

func TestReassemblerRejectsImpossiblePrefix(t *testing.T) {
	cases := [][]byte{
		{0xE0, 0x80}, // overlong
		{0xED, 0xA0}, // surrogate
		{0xF0, 0x80}, // overlong
		{0xF4, 0x90}, // past U+10FFFF
	}
	for _, in := range cases {
		var r Reassembler
		if out := r.Push(in); out != "" {
			t.Fatalf("%x: released %q", in, out)
		}
		if r.Pending() != 0 {
			t.Fatalf("%x: pending=%d", in, r.Pending())
		}
	}
	var r Reassembler
	if out := r.Push([]byte{0xED, 0x9F}); out != "" || r.Pending() != 2 {
		t.Fatalf("valid prefix not held: out=%q pending=%d", out, r.Pending())
	}
	if out := r.Push([]byte{0xBF}); out != "\uD7FF" {
		t.Fatalf("got %q", out)
	}
}

func TestReassemblerOutputAlwaysValid(t *testing.T) {
	inputs := [][]byte{
		{0xE0, 0x80, 0x80, 'a'},
		{0xED, 0xA0, 0x80, 'b'},
		{0xF4, 0x90, 0x80, 0x80},
		[]byte("plain ascii"),
		{0xC3, 0xA9, 0xC3},
	}
	for _, in := range inputs {
		var r Reassembler
		var got strings.Builder
		for i := range in {
			got.WriteString(r.Push(in[i : i+1]))
		}
		if !utf8.ValidString(got.String()) {
			t.Fatalf("invalid output %q for %x", got.String(), in)
		}
	}
}
