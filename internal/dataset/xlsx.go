package dataset

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

type xlsxWorkbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSharedStrings struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func loadXLSX(p string, opt LoadOptions) (*Frame, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb xlsxWorkbook
	if err := decodeZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRels
	_ = decodeZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels)
	var sst xlsxSharedStrings
	_ = decodeZipXML(&zr.Reader, "xl/sharedStrings.xml", &sst)

	target, err := sheetTarget(wb, rels, opt.Sheet, filepath.Base(p))
	if err != nil {
		return nil, err
	}
	var sheet xlsxSheet
	if err := decodeZipXML(&zr.Reader, target, &sheet); err != nil {
		return nil, err
	}

	shared := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		if si.T != "" || len(si.Runs) == 0 {
			shared[i] = si.T
			continue
		}
		var b strings.Builder
		for _, r := range si.Runs {
			b.WriteString(r.T)
		}
		shared[i] = b.String()
	}

	var frame *Frame
	for _, row := range sheet.Rows {
		var rec []string
		for i, c := range row.Cells {
			idx := i
			if c.Ref != "" {
				idx = columnIndex(c.Ref)
			}
			if idx < 0 {
				continue
			}
			for len(rec) <= idx {
				rec = append(rec, "")
			}
			switch c.Type {
			case "s":
				var n int
				if _, err := fmt.Sscan(c.Value, &n); err == nil && n >= 0 && n < len(shared) {
					rec[idx] = shared[n]
				}
			case "inlineStr":
				rec[idx] = c.Inline.T
			case "b":
				rec[idx] = map[string]string{"1": "true", "0": "false"}[c.Value]
			default:
				rec[idx] = c.Value
			}
		}
		if frame == nil {
			if blank(rec) {
				continue
			}
			frame = newFrame(filepath.Base(p), rec)
			continue
		}
		if opt.MaxRows > 0 && len(frame.Rows) >= opt.MaxRows {
			break
		}
		if blank(rec) {
			continue
		}
		frame.appendRecord(rec)
	}
	if frame == nil {
		return &Frame{Name: filepath.Base(p)}, nil
	}
	return frame, nil
}

func sheetTarget(wb xlsxWorkbook, rels xlsxRels, want, file string) (string, error) {
	targets := map[string]string{}
	for _, r := range rels.Items {
		targets[r.ID] = r.Target
	}
	if len(wb.Sheets) == 0 {
		return "xl/worksheets/sheet1.xml", nil
	}
	pick := wb.Sheets[0]
	if want != "" {
		found := false
		names := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			names = append(names, s.Name)
			if !found && strings.EqualFold(s.Name, want) {
				pick, found = s, true
			}
		}
		if !found {
			return "", fmt.Errorf("sheet %q not found in workbook %q (available: %s)", want, file, strings.Join(names, ", "))
		}
	}
	if t, ok := targets[pick.RID]; ok {
		t = strings.TrimPrefix(t, "/")
		if !strings.HasPrefix(t, "xl/") {
			t = path.Join("xl", t)
		}
		return t, nil
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", pick.SheetID), nil
}

func decodeZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		if err := xml.NewDecoder(io.LimitReader(rc, 256<<20)).Decode(v); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("xlsx part %s missing", name)
}

// columnIndex turns a cell reference such as "C12" into a 0-based column.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}
