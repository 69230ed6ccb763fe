package pdf

// table is a header row plus body rows whose height grows with the longest
// wrapped cell.
type table struct {
	headers  []string
	widths   []float64
	rows     [][]string
	fontSize float64
	rowFill  func(i int) (RGB, bool)
}

func (d *document) table(t table) {
	lh := t.fontSize * 0.45
	pad := 1.5

	drawHeader := func() {
		d.pdf.SetFont("Helvetica", "B", t.fontSize)
		h := d.rowHeight(t.headers, t.widths, lh, pad)
		d.fill(colorBrand)
		d.color(RGB{255, 255, 255})
		d.drawRow(t.headers, t.widths, h, lh, pad, true)
		d.color(colorInk)
	}

	d.ensureSpace(2 * (lh + 2*pad))
	drawHeader()

	for i, row := range t.rows {
		d.pdf.SetFont("Helvetica", "", t.fontSize)
		h := d.rowHeight(row, t.widths, lh, pad)
		if d.pdf.GetY()+h > d.bottom() {
			d.pdf.AddPage()
			d.pdf.SetXY(pageMargin, contentTop)
			drawHeader()
			d.pdf.SetFont("Helvetica", "", t.fontSize)
		}
		filled := false
		if t.rowFill != nil {
			var c RGB
			if c, filled = t.rowFill(i); filled {
				d.fill(c)
			}
		}
		d.drawRow(row, t.widths, h, lh, pad, filled)
	}
	d.pdf.Ln(4)
}

func (d *document) rowHeight(cells []string, widths []float64, lh, pad float64) float64 {
	maxLines := 1
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		maxLines = max(maxLines, len(d.lines(cell, widths[i]-2*pad)))
	}
	return float64(maxLines)*lh + 2*pad
}

func (d *document) drawRow(cells []string, widths []float64, h, lh, pad float64, filled bool) {
	y := d.pdf.GetY()
	x := pageMargin
	d.draw(colorRule)
	d.pdf.SetLineWidth(0.2)
	for i, w := range widths {
		style := "D"
		if filled {
			style = "FD"
		}
		d.pdf.Rect(x, y, w, h, style)
		if i < len(cells) {
			for j, l := range d.lines(cells[i], w-2*pad) {
				d.pdf.SetXY(x+pad, y+pad+float64(j)*lh)
				d.pdf.CellFormat(w-2*pad, lh, l, "", 0, "L", false, 0, "")
			}
		}
		x += w
	}
	d.pdf.SetXY(pageMargin, y+h)
}
