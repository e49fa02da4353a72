package runeio

import (
	"io"
)

// WriteANSIRune writes a rune to the given writer:
//   - ASCII runes are written directly as bytes
//   - NEL is written as the more conventional \r\n
//   - all other C1 controls are written in their classic 7-bit form
//     e.g. "\x9b" "\x1b\x5b" for CSI
//   - all other runes are written in utf8 form
func WriteANSIRune(w io.Writer, r rune) (n int, err error) {
	if r < 0x80 {
		if bw, ok := w.(io.ByteWriter); ok {
			return 1, bw.WriteByte(byte(r))
		}
		return w.Write([]byte{byte(r)})
	}
	if r == 0x85 {
		return w.Write([]byte{'\r', '\n'})
	}
	if r <= 0x9f {
		return w.Write([]byte{0x1b, byte(r ^ 0xc0)})
	}
	if rw, ok := w.(interface {
		WriteRune(r rune) (int, error)
	}); ok {
		return rw.WriteRune(r)
	}
	return io.WriteString(w, string(r))
}

// WriteLine writes s using WriteANSIRune for each rune, followed by a line
// feed; this is how printed values reach the terminal.
func WriteLine(w io.Writer, s string) (n int, err error) {
	for _, r := range s {
		m, err := WriteANSIRune(w, r)
		n += m
		if err != nil {
			return n, err
		}
	}
	m, err := WriteANSIRune(w, '\n')
	return n + m, err
}
