package assembler

import (
	"testing"

	"github.com/dgallion1/citectx/internal/doctree"
)

func sec(title string, level int) doctree.Section {
	return doctree.Section{Title: title, Level: level}
}

func TestBreadcrumb_Push(t *testing.T) {
	steps := []struct {
		sec  doctree.Section
		want string
	}{
		{sec("Intro", 1), "Intro"},
		{sec("Scope", 2), "Intro > Scope"},
		{sec("Detail", 3), "Intro > Scope > Detail"},
		{sec("Aside", 0), "Intro > Scope > Detail"},
		{sec("Other", 2), "Intro > Other"},
		{sec("Methods", 1), "Methods"},
		{sec("Deep", 3), "Methods > Deep"},
	}
	var b Breadcrumb
	for i, s := range steps {
		b = b.Push(s.sec)
		if got := b.Join(" > "); got != s.want {
			t.Errorf("step %d: expected %q, got %q", i, s.want, got)
		}
	}
}

func TestBreadcrumb_PushDoesNotMutate(t *testing.T) {
	base := Breadcrumb{}.Push(sec("A", 1)).Push(sec("B", 2))
	next := base.Push(sec("C", 2))
	if base.Join("/") != "A/B" {
		t.Errorf("expected original stack unchanged, got %q", base.Join("/"))
	}
	if next.Join("/") != "A/C" {
		t.Errorf("expected A/C, got %q", next.Join("/"))
	}
	sibling := base.Push(sec("D", 3))
	again := base.Push(sec("E", 3))
	if sibling.Join("/") != "A/B/D" || again.Join("/") != "A/B/E" {
		t.Errorf("expected independent snapshots, got %q and %q", sibling.Join("/"), again.Join("/"))
	}
}
