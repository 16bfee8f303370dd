package treesitter

import (
	"sort"
	"testing"
)

func TestLanguagesSorted(t *testing.T) {
	langs := Languages()
	if !sort.StringsAreSorted(langs) {
		t.Errorf("Languages() not sorted: %v", langs)
	}
	for _, l := range langs {
		if !Supported(l) {
			t.Errorf("Supported(%q) = false for a listed language", l)
		}
		if _, ok := GetLanguage(l); !ok {
			t.Errorf("GetLanguage(%q) not found", l)
		}
	}
}

func TestUnknownLanguage(t *testing.T) {
	if Supported("cobol") {
		t.Error("expected cobol to be unsupported")
	}
	if _, ok := GetLanguage("cobol"); ok {
		t.Error("expected cobol to not be found")
	}
	if _, err := NewParser("cobol"); err == nil {
		t.Error("expected error for unregistered language")
	}
}
