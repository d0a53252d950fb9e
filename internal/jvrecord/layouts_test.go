package jvrecord

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// padCP932 right-pads s with spaces to length n bytes (ASCII-only test
// fixtures, so byte length equals rune count).
func padCP932(s string, n int) []byte {
	b := []byte(s)
	if len(b) > n {
		return b[:n]
	}

	return append(b, bytes.Repeat([]byte(" "), n-len(b))...)
}

func numField(v, n int) []byte {
	s := strconv.Itoa(v)
	for len(s) < n {
		s = "0" + s
	}

	return []byte(s)
}

// makeRARecord builds an 856-byte RA record matching the positions in
// record_factory.py's make_ra_record.
func makeRARecord() []byte {
	data := make([]byte, 856)
	for i := range data {
		data[i] = ' '
	}

	copy(data[0:2], "RA")
	copy(data[2:3], "1")
	copy(data[3:11], "20260101")
	copy(data[11:15], "2026")
	copy(data[15:19], "0101")
	copy(data[19:21], "05")
	copy(data[21:23], "01")
	copy(data[23:25], "01")
	copy(data[25:27], "01")
	copy(data[32:92], padCP932("Test Race", 60))
	copy(data[697:701], "1600")
	copy(data[705:707], "11")
	copy(data[745:749], "1510")
	copy(data[753:755], "16")
	copy(data[755:757], "14")
	copy(data[757:759], "14")
	copy(data[759:760], "1")
	copy(data[760:761], "1")
	data[854] = '\r'
	data[855] = '\n'

	return data
}

func TestRALayout_ParsesRaceIdentityAndSummary(t *testing.T) {
	d := NewDemultiplexer()
	RegisterDefaults(d)

	table, rows, ok, err := d.Parse("NL", makeRARecord())
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "NL_RA", table)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "RA", row["RecordSpec"])
	assert.Equal(t, "2026", row["Year"])
	assert.Equal(t, "0101", row["MonthDay"])
	assert.Equal(t, "05", row["JyoCD"])
	assert.Equal(t, "01", row["RaceNum"])
	assert.Equal(t, "1600", row["Kyori"])
	assert.Equal(t, "11", row["TrackCD"])
	assert.Equal(t, "1510", row["HassoJikoku"])
	assert.Equal(t, "14", row["Tosu"])
}

func makeSERecord() []byte {
	data := make([]byte, 463)
	for i := range data {
		data[i] = ' '
	}

	copy(data[0:2], "SE")
	copy(data[2:3], "1")
	copy(data[3:11], "20260101")
	copy(data[11:15], "2026")
	copy(data[15:19], "0101")
	copy(data[19:21], "05")
	copy(data[25:27], "01")
	copy(data[28:30], "03")
	copy(data[30:40], "0000000001")
	data[461] = '\r'
	data[462] = '\n'

	return data
}

func TestSELayout_ParsesPerHorseIdentity(t *testing.T) {
	d := NewDemultiplexer()
	RegisterDefaults(d)

	table, rows, ok, err := d.Parse("NL", makeSERecord())
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "NL_SE", table)
	require.Len(t, rows, 1)
	assert.Equal(t, "03", rows[0]["Umaban"])
	assert.Equal(t, "0000000001", rows[0]["KettoNum"])
}

// makeH1FullRecord mirrors record_factory.py's make_h1_record_full for a
// 10-horse field: win odds scaled by 1000*(n+1-i), place odds by
// 500*(n+1-i), i zero-indexed.
func makeH1FullRecord(numHorses int) []byte {
	data := make([]byte, 28955)
	for i := range data {
		data[i] = ' '
	}

	copy(data[0:2], "H1")
	copy(data[2:3], "4")
	copy(data[3:11], "20260101")
	copy(data[11:15], "2026")
	copy(data[15:19], "0101")
	copy(data[19:21], "05")
	copy(data[25:27], "01")
	copy(data[27:29], "12")
	copy(data[29:31], strconv.Itoa(numHorses))

	for i := 0; i < 28; i++ {
		offset := 83 + 15*i
		if i < numHorses {
			copy(data[offset:offset+2], numField(i+1, 2))
			copy(data[offset+2:offset+13], numField(1000*(numHorses+1-i), 11))
			copy(data[offset+13:offset+15], numField(i+1, 2))
		}
	}

	for i := 0; i < 28; i++ {
		offset := 503 + 15*i
		if i < numHorses {
			copy(data[offset:offset+2], numField(i+1, 2))
			copy(data[offset+2:offset+13], numField(500*(numHorses+1-i), 11))
			copy(data[offset+13:offset+15], numField(i+1, 2))
		}
	}

	data[28953] = '\r'
	data[28954] = '\n'

	return data
}

func TestH1FullLayout_EmitsOneRowPerHorseWithWinAndPlaceOdds(t *testing.T) {
	d := NewDemultiplexer()
	RegisterDefaults(d)

	table, rows, ok, err := d.Parse("NL", makeH1FullRecord(10))
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "NL_H1", table)
	require.Len(t, rows, 10)

	first := rows[0]
	assert.Equal(t, "01", first["Umaban"])
	assert.Equal(t, "1100.0", first["TanOdds"]) // raw 1000*(10+1-0)=11000, scale 1 -> 1100.0
	assert.Equal(t, "01", first["TanNinki"])
	assert.Equal(t, "550.0", first["FukuOdds"]) // raw 500*(10+1-0)=5500, scale 1 -> 550.0
	assert.Equal(t, "01", first["FukuNinki"])
}

func TestH1FullLayout_SkipsBlankTrailingSlots(t *testing.T) {
	d := NewDemultiplexer()
	RegisterDefaults(d)

	_, rows, ok, err := d.Parse("NL", makeH1FullRecord(5))
	require.True(t, ok)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestDemux_UnknownSpecIsDroppedWithoutFailure(t *testing.T) {
	d := NewDemultiplexer()
	RegisterDefaults(d)

	payload := append([]byte("ZZ"), bytes.Repeat([]byte(" "), 50)...)

	_, _, ok, err := d.Parse("NL", payload)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestLayout_WrongLengthReturnsRecordLengthError(t *testing.T) {
	d := NewDemultiplexer()
	RegisterDefaults(d)

	// SE's spec but truncated to 10 bytes and no full-length form
	// registered at that size: the single-form fallback surfaces the
	// mismatch as ErrRecordLength rather than silently misparsing.
	payload := []byte("SE12345678")

	_, _, ok, err := d.Parse("NL", payload)
	require.True(t, ok)
	require.Error(t, err)

	var lenErr *ErrRecordLength
	assert.ErrorAs(t, err, &lenErr)
}

func TestDecodeField_CollapsesWhitespaceAndStripsTrailingSpaces(t *testing.T) {
	assert.Equal(t, "", decodeField([]byte("          ")))
	assert.Equal(t, "ABC", decodeField([]byte("ABC   ")))
}
