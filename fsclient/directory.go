package fsclient

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one parsed directory entry.
type Entry struct {
	Name string
	Inum uint32
}

// ErrInvalidName is returned for a name containing ':' or '/', the two
// characters the flat directory grammar uses as delimiters and therefore
// cannot round-trip. The source never guards against this; SPEC_FULL.md's
// corresponding redesign note calls for rejecting it outright instead of
// silently corrupting the directory listing.
var ErrInvalidName = fmt.Errorf("fsclient: name must not contain ':' or '/'")

func validateName(name string) error {
	if strings.ContainsAny(name, ":/") {
		return ErrInvalidName
	}
	return nil
}

// encodeEntry renders one "name:inum/" grammar token.
func encodeEntry(name string, inum uint32) string {
	return name + ":" + strconv.FormatUint(uint64(inum), 10) + "/"
}

// parseDirectory decodes a directory's raw content per the flat grammar
// DIR ::= (name ":" inum "/")*, matching chfs_client::readdir's scan.
func parseDirectory(buf []byte) []Entry {
	s := string(buf)
	var entries []Entry
	nameStart := 0
	for {
		nameEnd := strings.IndexByte(s[nameStart:], ':')
		if nameEnd < 0 {
			break
		}
		nameEnd += nameStart
		name := s[nameStart:nameEnd]
		inumStart := nameEnd + 1
		inumEnd := strings.IndexByte(s[inumStart:], '/')
		if inumEnd < 0 {
			break
		}
		inumEnd += inumStart
		inum, err := strconv.ParseUint(s[inumStart:inumEnd], 10, 32)
		if err != nil {
			break
		}
		entries = append(entries, Entry{Name: name, Inum: uint32(inum)})
		nameStart = inumEnd + 1
	}
	return entries
}

// lookupEntry returns the entry named name, if present.
func lookupEntry(buf []byte, name string) (Entry, bool) {
	for _, e := range parseDirectory(buf) {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// appendEntry returns buf with one new "name:inum/" token appended.
func appendEntry(buf []byte, name string, inum uint32) []byte {
	return append(buf, []byte(encodeEntry(name, inum))...)
}

// removeEntry returns buf with the named entry's token cut out, and
// whether it was found.
func removeEntry(buf []byte, name string) ([]byte, bool) {
	s := string(buf)
	token := name + ":"
	start := strings.Index(s, token)
	if start < 0 {
		return buf, false
	}
	slashIdx := strings.IndexByte(s[start:], '/')
	if slashIdx < 0 {
		return buf, false
	}
	end := start + slashIdx + 1
	return append([]byte(s[:start]), []byte(s[end:])...), true
}
