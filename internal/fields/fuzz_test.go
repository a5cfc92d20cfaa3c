package fields

import (
	"reflect"
	"testing"
)

func FuzzExtract(f *testing.F) {
	f.Add(usPassport)
	f.Add(deltaPass)
	f.Add("")
	f.Add("Name:\n\n\n")
	f.Add("P<USADOE<<JOHN\nA1234567<8USA9007155M")
	f.Fuzz(func(t *testing.T, text string) {
		p1, p2 := ExtractPassport(text), ExtractPassport(text)
		if !reflect.DeepEqual(p1, p2) {
			t.Fatalf("passport extraction not deterministic for %q", text)
		}
		b1, b2 := ExtractBoardingPass(text), ExtractBoardingPass(text)
		if !reflect.DeepEqual(b1, b2) {
			t.Fatalf("boarding pass extraction not deterministic for %q", text)
		}
		for k, v := range p1.Map() {
			if v == "" {
				t.Fatalf("passport field %s present but empty", k)
			}
		}
		for k, v := range b1.Map() {
			if v == "" {
				t.Fatalf("boarding pass field %s present but empty", k)
			}
		}
	})
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("  A \r\n\n\tB\n   \nC")
	want := Lines{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWindow(t *testing.T) {
	ls := Lines{"a", "b", "c", "d", "e"}
	if got := ls.window(0, 3); !reflect.DeepEqual(got, Lines{"b", "c", "d"}) {
		t.Fatalf("expected [b c d], got %q", got)
	}
	if got := ls.window(3, 3); !reflect.DeepEqual(got, Lines{"e"}) {
		t.Fatalf("expected [e], got %q", got)
	}
	if got := ls.window(4, 3); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
}
