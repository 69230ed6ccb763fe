package spreadsheet

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FormulaCell is a formula found anywhere in a worksheet part, including cells
// outside the rows and columns exposed through Sheet.Rows.
type FormulaCell struct {
	Ref     string
	Formula string
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// collectFormulas maps each sheet name to every formula its worksheet part holds.
func collectFormulas(data []byte) (map[string][]FormulaCell, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook container: %w", err)
	}
	parts := make(map[string]*zip.File, len(zr.File))
	for _, file := range zr.File {
		parts[strings.TrimPrefix(file.Name, "/")] = file
	}

	var wb workbookXML
	if err := decodePart(parts, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodePart(parts, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		if strings.HasPrefix(rel.Target, "/") {
			targets[rel.ID] = strings.TrimPrefix(rel.Target, "/")
		} else {
			targets[rel.ID] = path.Join("xl", rel.Target)
		}
	}

	formulas := make(map[string][]FormulaCell, len(wb.Sheets))
	for _, s := range wb.Sheets {
		part, ok := parts[targets[s.RID]]
		if !ok {
			continue
		}
		cells, err := scanWorksheetFormulas(part)
		if err != nil {
			return nil, fmt.Errorf("failed to scan formulas of %q: %w", s.Name, err)
		}
		formulas[s.Name] = cells
	}
	return formulas, nil
}

func decodePart(parts map[string]*zip.File, name string, v any) error {
	file, ok := parts[name]
	if !ok {
		return fmt.Errorf("workbook part %s is missing", name)
	}
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(io.LimitReader(rc, unzipXMLSizeLimit)).Decode(v)
}

// scanWorksheetFormulas streams a worksheet part and records every <f> element.
// Rows and cells without an r attribute follow the previous one.
func scanWorksheetFormulas(file *zip.File) ([]FormulaCell, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		cells    []FormulaCell
		row, col int
		ref      string
	)
	dec := xml.NewDecoder(io.LimitReader(rc, unzipXMLSizeLimit))
	for {
		token, err := dec.Token()
		if err == io.EOF {
			return cells, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "row":
			row++
			col = 0
			if n, err := strconv.Atoi(attr(start, "r")); err == nil && n > 0 {
				row = n
			}
		case "c":
			col++
			if c, r, err := excelize.CellNameToCoordinates(attr(start, "r")); err == nil {
				col, row = c, r
			}
			ref, _ = excelize.CoordinatesToCellName(max(col, 1), max(row, 1))
		case "f":
			var text string
			if err := dec.DecodeElement(&text, &start); err != nil {
				return nil, err
			}
			if text = strings.TrimSpace(text); text != "" {
				cells = append(cells, FormulaCell{Ref: ref, Formula: text})
			}
		}
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
