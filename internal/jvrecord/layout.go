package jvrecord

import "fmt"

// Row is one parsed record row: canonical column name to string value.
// Absent keys mean NULL, never the empty string sentinel.
type Row map[string]string

// RepeatGroup describes a sub-element that recurs Count times at a fixed
// Stride, starting at BaseOffset. Each iteration emits one Row carrying the
// parent's identifier columns plus the sub-group's own fields (offsets in
// Fields are relative to the start of that iteration's slice).
type RepeatGroup struct {
	BaseOffset int
	Stride     int
	Count      int
	Fields     []FieldSpec
	// SkipIfBlank, when set, names a field whose presence (non-empty, not a
	// fill value) gates whether the iteration emits a row at all — used for
	// repeating slots that are blank-padded once real entries run out.
	SkipIfBlank string
}

// Layout is the declarative definition of one record type: its expected
// byte length, the flat field list, and an optional repeating sub-group.
type Layout struct {
	Table   string
	Length  int
	Fields  []FieldSpec
	Repeat  *RepeatGroup
	RepeatB *RepeatGroup // second repeating group, e.g. H1's place-odds block
}

// ErrRecordLength is returned when a payload's length doesn't match any
// registered layout for its record spec.
type ErrRecordLength struct {
	Table    string
	Expected []int
	Got      int
}

func (e *ErrRecordLength) Error() string {
	return fmt.Sprintf("jvrecord: %s: unexpected record length %d (expected one of %v)", e.Table, e.Got, e.Expected)
}

// Parse applies the layout to payload, producing one row for a flat record
// or one row per repeating sub-element. Identifier columns (the flat
// fields) are copied onto every sub-group row.
func (l *Layout) Parse(payload []byte) ([]Row, error) {
	if len(payload) != l.Length {
		return nil, &ErrRecordLength{Table: l.Table, Expected: []int{l.Length}, Got: len(payload)}
	}

	base := Row{}

	for _, f := range l.Fields {
		if v, ok := f.extract(payload); ok {
			base[f.Name] = v
		}
	}

	groups := make([]*RepeatGroup, 0, 2)
	if l.Repeat != nil {
		groups = append(groups, l.Repeat)
	}

	if l.RepeatB != nil {
		groups = append(groups, l.RepeatB)
	}

	if len(groups) == 0 {
		return []Row{base}, nil
	}

	return parseRepeating(base, payload, groups)
}

// parseRepeating merges parallel repeating groups index-by-index (e.g. H1's
// win-odds and place-odds arrays, both indexed by horse position) into one
// row per index.
func parseRepeating(base Row, payload []byte, groups []*RepeatGroup) ([]Row, error) {
	count := groups[0].Count

	rows := make([]Row, 0, count)

	for i := 0; i < count; i++ {
		row := Row{}
		for k, v := range base {
			row[k] = v
		}

		present := false

		for _, g := range groups {
			offset := g.BaseOffset + g.Stride*i

			skip := false

			for _, f := range g.Fields {
				shifted := FieldSpec{
					Name: f.Name, Start: offset + f.Start, End: offset + f.End,
					Kind: f.Kind, Nullable: f.Nullable, Scale: f.Scale,
				}

				v, ok := shifted.extract(payload)
				if !ok {
					continue
				}

				if g.SkipIfBlank == f.Name && isFillOnly(v) {
					skip = true
				}

				row[f.Name] = v
			}

			if !skip {
				present = true
			}
		}

		if present {
			rows = append(rows, row)
		}
	}

	return rows, nil
}
