package fsclient

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDirectoryMultipleEntries(t *testing.T) {
	buf := []byte("alpha:2/beta:3/gamma:17/")
	got := parseDirectory(buf)
	want := []Entry{
		{Name: "alpha", Inum: 2},
		{Name: "beta", Inum: 3},
		{Name: "gamma", Inum: 17},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parseDirectory mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDirectoryEmpty(t *testing.T) {
	got := parseDirectory(nil)
	if len(got) != 0 {
		t.Fatalf("parseDirectory(nil) = %v, want empty", got)
	}
}

func TestAppendThenRemoveEntryRoundTrip(t *testing.T) {
	buf := appendEntry(nil, "one", 5)
	buf = appendEntry(buf, "two", 6)

	buf, found := removeEntry(buf, "one")
	if !found {
		t.Fatal("removeEntry should find 'one'")
	}
	got := parseDirectory(buf)
	want := []Entry{{Name: "two", Inum: 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch after removeEntry (-want +got):\n%s", diff)
	}
}

func TestValidateNameRejectsDelimiters(t *testing.T) {
	cases := []string{"a:b", "a/b", "a:b/c"}
	for _, name := range cases {
		if err := validateName(name); err != ErrInvalidName {
			t.Errorf("validateName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
	if err := validateName("plain-name.txt"); err != nil {
		t.Errorf("validateName(plain) = %v, want nil", err)
	}
}
