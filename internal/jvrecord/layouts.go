package jvrecord

// Layouts below are byte-exact against the vendor's published field
// positions for RA, SE, and H1 (both the flat and "zenkake" full forms).
// Other record specs (HR, WF, BN, WH, O1-O6, ...) are registered once their
// field-level byte offsets are available; until then the demultiplexer
// reports them as unknown specs, which the read loop is required to
// tolerate (counted and dropped, not a hard failure).

// raceHeader is the common 27-byte race-identification prefix shared by
// RA, SE, and H1: record spec, data classification, creation date, then
// the (year, month/day, venue, meeting, day, race number) key tuple.
func raceHeader(table string) []FieldSpec {
	return []FieldSpec{
		{Name: "RecordSpec", Start: 0, End: 2, Kind: KindText},
		{Name: "DataKubun", Start: 2, End: 3, Kind: KindText},
		{Name: "MakeDate", Start: 3, End: 11, Kind: KindText},
		{Name: "Year", Start: 11, End: 15, Kind: KindInt},
		{Name: "MonthDay", Start: 15, End: 19, Kind: KindText},
		{Name: "JyoCD", Start: 19, End: 21, Kind: KindText},
		{Name: "RaceNum", Start: 25, End: 27, Kind: KindText},
	}
}

// raLayout is the 856-byte race-summary record (JV_RA_RACE).
func raLayout(table string) *Layout {
	return &Layout{
		Table:  table,
		Length: 856,
		Fields: append(raceHeader(table),
			FieldSpec{Name: "RaceName", Start: 32, End: 92, Kind: KindText, Nullable: true},
			FieldSpec{Name: "Kyori", Start: 697, End: 701, Kind: KindInt},
			FieldSpec{Name: "TrackCD", Start: 705, End: 707, Kind: KindText},
			FieldSpec{Name: "HassoJikoku", Start: 745, End: 749, Kind: KindText, Nullable: true},
			FieldSpec{Name: "Tosu", Start: 755, End: 757, Kind: KindInt, Nullable: true}, // SyussoTosu
			FieldSpec{Name: "TenkoCD", Start: 759, End: 760, Kind: KindCode, Nullable: true},
			FieldSpec{Name: "BabaCD", Start: 760, End: 761, Kind: KindCode, Nullable: true}, // shiba baba cd
		),
	}
}

// seLayout is the 463-byte per-horse entry/result record (JV_SE_RACE_UMA).
func seLayout(table string) *Layout {
	return &Layout{
		Table:  table,
		Length: 463,
		Fields: append(raceHeader(table),
			FieldSpec{Name: "Umaban", Start: 28, End: 30, Kind: KindText},
			FieldSpec{Name: "KettoNum", Start: 30, End: 40, Kind: KindText},
			FieldSpec{Name: "Bamei", Start: 40, End: 76, Kind: KindText, Nullable: true},
		),
	}
}

// h1FlatLayout is the 317-byte single-horse H1 form.
func h1FlatLayout(table string) *Layout {
	return &Layout{
		Table:  table,
		Length: 317,
		Fields: append(raceHeader(table),
			FieldSpec{Name: "Umaban", Start: 42, End: 44, Kind: KindText},
			FieldSpec{Name: "TanOdds", Start: 44, End: 55, Kind: KindDecimal, Scale: 1, Nullable: true},
		),
	}
}

// h1FullLayout is the 28955-byte "zenkake" H1 form carrying every horse's
// win and place odds as two parallel 28-element, 15-byte-stride arrays
// (win at offset 83, place at offset 503): each element is
// (Umaban 2, Odds 11, Ninki 2).
func h1FullLayout(table string) *Layout {
	oddsFields := []FieldSpec{
		{Name: "Umaban", Start: 0, End: 2, Kind: KindText},
		{Name: "odds", Start: 2, End: 13, Kind: KindDecimal, Scale: 1, Nullable: true},
		{Name: "ninki", Start: 13, End: 15, Kind: KindInt, Nullable: true},
	}

	winFields := renameGroup(oddsFields, "odds", "TanOdds", "ninki", "TanNinki")
	placeFields := renameGroup(oddsFields, "odds", "FukuOdds", "ninki", "FukuNinki")

	return &Layout{
		Table:  table,
		Length: 28955,
		Fields: append(raceHeader(table),
			FieldSpec{Name: "TorokuTosu", Start: 27, End: 29, Kind: KindInt},
			FieldSpec{Name: "SyussoTosu", Start: 29, End: 31, Kind: KindInt},
		),
		Repeat: &RepeatGroup{
			BaseOffset: 83, Stride: 15, Count: 28, Fields: winFields, SkipIfBlank: "Umaban",
		},
		RepeatB: &RepeatGroup{
			BaseOffset: 503, Stride: 15, Count: 28, Fields: placeFields, SkipIfBlank: "Umaban",
		},
	}
}

func renameGroup(fields []FieldSpec, pairs ...string) []FieldSpec {
	renames := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		renames[pairs[i]] = pairs[i+1]
	}

	out := make([]FieldSpec, len(fields))

	for i, f := range fields {
		if newName, ok := renames[f.Name]; ok {
			f.Name = newName
		}

		out[i] = f
	}

	return out
}

// RegisterDefaults wires every byte-exact-grounded layout into d for both
// the archival (NL) and realtime (RT) families sharing that wire format.
// H1 registers both its flat and full forms under the same (family, "H1")
// key; Demux picks the form matching the payload's length.
func RegisterDefaults(d *Demultiplexer) {
	for _, family := range []string{"NL", "RT"} {
		d.Register(family, "RA", raLayout(family+"_RA"))
		d.Register(family, "SE", seLayout(family+"_SE"))
		d.Register(family, "H1", h1FlatLayout(family+"_H1"))
		d.Register(family, "H1", h1FullLayout(family+"_H1"))
	}
}
