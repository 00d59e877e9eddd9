package bibl

// Cited is the display projection of a reference used in output rows.
type Cited struct {
	ID      *string
	Title   *string
	Authors *string
	Raw     *string
}

// Project reduces a reference to its display fields. The analytic block
// wins over the monogr block for both title and authors. A nil reference
// projects to all-nil fields.
func Project(ref *Reference) Cited {
	if ref == nil {
		return Cited{}
	}
	c := Cited{ID: ref.ID, Raw: ref.RawRef}

	switch {
	case ref.Analytic != nil && ref.Analytic.Title != nil:
		c.Title = ref.Analytic.Title
	default:
		if t := ref.Monogr.Title(); t != nil {
			title := t.Text
			c.Title = &title
		}
	}

	authors := ref.Monogr.Authors
	if ref.Analytic != nil {
		authors = ref.Analytic.Authors
	}
	names := FormatAuthors(authors)
	c.Authors = &names
	return c
}
