package assembler

import (
	"strings"

	"github.com/dgallion1/citectx/internal/doctree"
)

// Breadcrumb is the stack of open section titles. Values are never
// mutated: Push returns a new stack.
type Breadcrumb []string

// Push returns the stack after entering sec. An unnumbered section leaves
// the stack untouched; a section of level k truncates the stack to k-1
// entries and appends its title.
func (b Breadcrumb) Push(sec doctree.Section) Breadcrumb {
	if sec.Level <= 0 {
		return b
	}
	keep := min(len(b), sec.Level-1)
	out := make(Breadcrumb, keep, keep+1)
	copy(out, b[:keep])
	return append(out, sec.Title)
}

// Join renders the stack with sep.
func (b Breadcrumb) Join(sep string) string {
	return strings.Join(b, sep)
}
