// Package hexdump renders raw bytes for diagnostic logging, used by
// persister when it drops a malformed log or checkpoint record during
// recovery so the dropped bytes can be inspected without re-running with a
// debugger attached.
package hexdump

import "fmt"

// Dump renders b as hex octets grouped by 8, with a leading byte-offset
// column, one row per bytesPerRow bytes.
func Dump(b []byte, bytesPerRow int) string {
	if bytesPerRow <= 0 {
		bytesPerRow = 16
	}
	var out string
	numRows := (len(b) + bytesPerRow - 1) / bytesPerRow
	for i := 0; i < numRows; i++ {
		first := i * bytesPerRow
		last := first + bytesPerRow
		row := fmt.Sprintf("%08x ", first)
		for j := first; j < last; j++ {
			if j%8 == 0 {
				row += " "
			}
			if j < len(b) {
				row += fmt.Sprintf(" %02x", b[j])
			} else {
				row += "   "
			}
		}
		out += row + "\n"
	}
	return out
}
