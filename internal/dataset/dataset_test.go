package dataset

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCSV_TypesCells(t *testing.T) {
	p := writeFile(t, "sales.csv", "region,sales,day,active,zip\nEast,\"1,200\",2024-01-05,true,02139\nWest,,01/15/2024,no,94105\n\n")
	f, err := Load(p, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", f.Name)
	assert.Equal(t, []string{"region", "sales", "day", "active", "zip"}, f.Header)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, []any{"East", 1200.0, "2024-01-05", true, "02139"}, f.Rows[0])
	assert.Equal(t, []any{"West", nil, "2024-01-15", false, 94105.0}, f.Rows[1])
}

func TestLoadTSV_PadsShortRows(t *testing.T) {
	p := writeFile(t, "x.tsv", "a\tb\tc\n1\t2\n")
	f, err := Load(p, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, f.Rows, 1)
	assert.Equal(t, []any{1.0, 2.0, nil}, f.Rows[0])
}

func TestLoadCSV_MaxRowsAndDuplicateHeaders(t *testing.T) {
	p := writeFile(t, "d.csv", "a,a,\n1,2,3\n4,5,6\n7,8,9\n")
	f, err := Load(p, LoadOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_2", "column_3"}, f.Header)
	assert.Len(t, f.Rows, 2)
}

func TestLoad_RejectsUnknownExtension(t *testing.T) {
	_, err := Load("data.parquet", LoadOptions{})
	assert.Error(t, err)
}

func TestFrameResultsNormalize(t *testing.T) {
	f := &Frame{Name: "t", Header: []string{"k", "v"}, Rows: [][]any{{"a", 1.0}, {"b", 2.0}}}
	rows := f.Table()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"k", "v"}, rows[0].Keys())
	assert.Len(t, f.HeadResults(1), 2)
}

func writeXLSX(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book.xlsx")
	out, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	parts := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Data" sheetId="1" r:id="rId1"/><sheet name="Other" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Target="worksheets/sheet1.xml"/><Relationship Id="rId2" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>name</t></si><si><t>score</t></si><si><r><t>Al</t></r><r><t>ice</t></r></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>91.5</v></c></row>
<row r="3"><c r="A3" t="inlineStr"><is><t>Bob</t></is></c></row>
</sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="B1" t="inlineStr"><is><t>flag</t></is></c></row>
<row r="2"><c r="B2" t="b"><v>1</v></c></row>
</sheetData></worksheet>`,
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return p
}

func TestLoadXLSX(t *testing.T) {
	p := writeXLSX(t)
	f, err := Load(p, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score"}, f.Header)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, []any{"Alice", 91.5}, f.Rows[0])
	assert.Equal(t, []any{"Bob", nil}, f.Rows[1])

	other, err := Load(p, LoadOptions{Sheet: "other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"column_1", "flag"}, other.Header)
	assert.Equal(t, []any{nil, true}, other.Rows[0])

	_, err = Load(p, LoadOptions{Sheet: "missing"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Data, Other"))
}

func TestProfileAndFindings(t *testing.T) {
	f := &Frame{
		Name:   "shop.csv",
		Header: []string{"store", "revenue", "opened", "note"},
		Rows: [][]any{
			{"A", 10.0, "2023-01-01", nil},
			{"B", 30.0, "2024-06-01", nil},
			{"A", 20.0, "2022-03-01", "x"},
		},
	}
	profiles := Profile(f)
	require.Len(t, profiles, 4)
	assert.Equal(t, KindCategorical, profiles[0].Kind)
	assert.Equal(t, "A", profiles[0].TopValues[0].Value)
	assert.Equal(t, KindNumeric, profiles[1].Kind)
	assert.Equal(t, 10.0, profiles[1].Min)
	assert.Equal(t, 30.0, profiles[1].Max)
	assert.InDelta(t, 20.0, profiles[1].Mean, 1e-9)
	assert.InDelta(t, 10.0, profiles[1].Std, 1e-9)
	assert.Equal(t, KindDatetime, profiles[2].Kind)
	assert.Equal(t, "2022-03-01", profiles[2].First)
	assert.Equal(t, "2024-06-01", profiles[2].Last)
	assert.Equal(t, 2, profiles[3].Missing)

	findings := Findings(f, profiles)
	titles := make([]string, len(findings))
	for i, fd := range findings {
		titles[i] = fd.Title
	}
	assert.Contains(t, titles, "Most common store is A")
	assert.Contains(t, titles, "revenue ranges 10 to 30")
	assert.Contains(t, titles, "note is often missing")

	summary := Summary(f, profiles)
	assert.Contains(t, summary, "shop.csv has 3 rows and 4 columns.")
	assert.Contains(t, summary, "Numeric: revenue.")
}

func TestStaticRegistry(t *testing.T) {
	r := NewStaticRegistry(Dataset{ID: "b", Name: "Bee"}, Dataset{ID: "a"}, Dataset{Name: "no id"})
	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "Bee", DisplayName(r, "b"))
	assert.Equal(t, "zzz", DisplayName(r, "zzz"))
}

func TestCacheLoadsOnce(t *testing.T) {
	p := writeFile(t, "c.csv", "a\n1\n")
	c := NewCache(LoadOptions{})
	var wg sync.WaitGroup
	frames := make([]*Frame, 8)
	for i := range frames {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := c.Get(p)
			assert.NoError(t, err)
			frames[i] = f
		}(i)
	}
	wg.Wait()
	for _, f := range frames[1:] {
		assert.Same(t, frames[0], f)
	}
	c.Forget(p)
	again, err := c.Get(p)
	require.NoError(t, err)
	assert.NotSame(t, frames[0], again)
}
