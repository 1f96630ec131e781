package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/minhvu-dev/sakura-store/internal/i18n"
)

const (
	marginX      = 40.0
	logoSize     = 80.0
	summaryWidth = 220.0
)

// Renderer produces an A4 invoice PDF from a Record. Rendering is a pure
// function of the record: the document's creation date is pinned to the
// record's issue time, so re-rendering the same record yields identical bytes.
type Renderer struct {
	T *i18n.Translator
	// FontPath optionally points at a UTF-8 TTF used for all text. Without
	// it the renderer falls back to the built-in Helvetica, which degrades
	// glyphs outside cp1252.
	FontPath string
	Now      func() time.Time
}

type page struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	width  float64
}

// Render lays the record out as a PDF and returns the document bytes.
func (r *Renderer) Render(rec Record) ([]byte, error) {
	if r == nil || r.T == nil {
		return nil, errors.New("invoice: renderer not configured")
	}
	if len(rec.Items) == 0 {
		return nil, errors.New("invoice: record has no items")
	}

	issued := rec.IssuedAt
	if issued.IsZero() {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		issued = now()
	}
	issued = issued.UTC()

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetCatalogSort(true)
	doc.SetCreationDate(issued)
	doc.SetModificationDate(issued)
	doc.SetTitle("Invoice "+rec.Number, true)
	doc.SetAutoPageBreak(true, 60)
	doc.AddPage()

	p := &page{pdf: doc, family: "helvetica", tr: doc.UnicodeTranslatorFromDescriptor("")}
	if r.FontPath != "" {
		if _, err := os.Stat(r.FontPath); err == nil {
			doc.AddUTF8Font("invoice", "", r.FontPath)
			doc.AddUTF8Font("invoice", "B", r.FontPath)
			p.family = "invoice"
			p.tr = func(s string) string { return s }
		}
	}
	pageW, _ := doc.GetPageSize()
	p.width = pageW

	t := func(key string) string { return r.T.T(rec.Locale, key, nil) }

	r.header(p, rec, t)
	r.parties(p, rec, issued, t)
	r.itemTable(p, rec, t)
	r.summary(p, rec, t)
	r.footer(p, rec, t)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(p *page, rec Record, t func(string) string) {
	pdf := p.pdf
	top := 40.0
	textX := marginX

	if rec.Store.LogoPath != "" {
		if _, err := os.Stat(rec.Store.LogoPath); err == nil {
			pdf.Image(rec.Store.LogoPath, marginX, top, logoSize, logoSize, false, "", 0, "")
			textX = marginX + logoSize + 16
		}
	}

	pdf.SetFont(p.family, "B", 20)
	pdf.SetTextColor(30, 30, 30)
	pdf.SetXY(marginX, top+4)
	pdf.CellFormat(p.width-2*marginX, 24, p.tr(t("invoice.title")), "", 0, "R", false, 0, "")

	pdf.SetFont(p.family, "B", 12)
	pdf.SetXY(textX, top+34)
	pdf.CellFormat(0, 14, p.tr(rec.Store.Name), "", 2, "L", false, 0, "")
	pdf.SetFont(p.family, "", 9)
	pdf.SetTextColor(90, 90, 90)
	for _, line := range storeLines(rec.Store, t) {
		pdf.SetX(textX)
		pdf.CellFormat(0, 12, p.tr(line), "", 2, "L", false, 0, "")
	}

	y := top + logoSize + 18
	if pdf.GetY()+10 > y {
		y = pdf.GetY() + 10
	}
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(marginX, y, p.width-marginX, y)
	pdf.SetY(y + 14)
}

func storeLines(store StoreProfile, t func(string) string) []string {
	var lines []string
	if store.Address != "" {
		lines = append(lines, store.Address)
	}
	contact := ""
	if store.Phone != "" {
		contact = t("invoice.phone") + ": " + store.Phone
	}
	if store.Email != "" {
		if contact != "" {
			contact += "  ·  "
		}
		contact += store.Email
	}
	if contact != "" {
		lines = append(lines, contact)
	}
	if store.TaxID != "" {
		lines = append(lines, t("invoice.tax_id")+": "+store.TaxID)
	}
	return lines
}

func (r *Renderer) parties(p *page, rec Record, issued time.Time, t func(string) string) {
	pdf := p.pdf
	colW := (p.width - 2*marginX) / 2
	topY := pdf.GetY()

	method := rec.PaymentMethod
	if method == "" {
		method = t("invoice.method_card")
	}
	status := t("invoice.unpaid")
	if rec.Paid {
		status = t("invoice.paid")
	}
	meta := []kv{
		{t("invoice.number"), rec.Number},
		{t("invoice.date"), issued.Format("02/01/2006 15:04")},
		{t("invoice.order_id"), rec.OrderID},
		{t("invoice.payment_method"), method},
		{t("invoice.payment_status"), status},
	}
	r.kvBlock(p, marginX, topY, colW-10, t("invoice.info"), meta)
	leftY := pdf.GetY()

	customer := []kv{
		{t("invoice.customer_name"), rec.Customer.Name},
		{t("invoice.customer_phone"), rec.Customer.Phone},
		{t("invoice.customer_email"), rec.Customer.Email},
		{t("invoice.customer_address"), rec.Customer.Address},
		{t("invoice.customer_id"), rec.Customer.CustomerID},
	}
	r.kvBlock(p, marginX+colW, topY, colW-10, t("invoice.customer_info"), customer)

	if leftY > pdf.GetY() {
		pdf.SetY(leftY)
	}
	pdf.Ln(16)
}

type kv struct{ label, value string }

func (r *Renderer) kvBlock(p *page, x, y, w float64, title string, rows []kv) {
	pdf := p.pdf
	pdf.SetXY(x, y)
	pdf.SetFont(p.family, "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(w, 13, p.tr(title), "", 2, "L", false, 0, "")
	pdf.SetFont(p.family, "", 9)
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		pdf.SetX(x)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(110, 12, p.tr(row.label), "", 0, "L", false, 0, "")
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(w-110, 12, p.tr(row.value), "", 2, "L", false, 0, "")
	}
}

func (r *Renderer) itemTable(p *page, rec Record, t func(string) string) {
	pdf := p.pdf
	usable := p.width - 2*marginX
	widths := []float64{36, usable - 36 - 46 - 90 - 90, 46, 90, 90}
	aligns := []string{"C", "L", "C", "R", "R"}
	headers := []string{
		t("invoice.col_index"),
		t("invoice.col_name"),
		t("invoice.col_qty"),
		t("invoice.col_unit_price"),
		t("invoice.col_line_total"),
	}

	pdf.SetX(marginX)
	pdf.SetFont(p.family, "B", 9)
	pdf.SetFillColor(45, 55, 72)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 18, p.tr(h), "", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(p.family, "", 9)
	pdf.SetTextColor(30, 30, 30)
	for i, item := range rec.Items {
		fill := i%2 == 1
		pdf.SetFillColor(243, 244, 246)
		pdf.SetX(marginX)
		cells := []string{
			strconv.Itoa(i + 1),
			item.Name,
			strconv.FormatInt(item.Qty, 10),
			FormatMoney(item.UnitPrice, rec.Totals.Currency),
			FormatMoney(item.LineTotal, rec.Totals.Currency),
		}
		for j, cell := range cells {
			pdf.CellFormat(widths[j], 16, p.tr(cell), "", 0, aligns[j], fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(12)
}

func (r *Renderer) summary(p *page, rec Record, t func(string) string) {
	pdf := p.pdf
	x := p.width - marginX - summaryWidth
	labelW := summaryWidth - 90.0

	pdf.SetX(x)
	pdf.SetFont(p.family, "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(summaryWidth, 14, p.tr(t("invoice.summary")), "", 2, "L", false, 0, "")

	taxLabel := t("invoice.tax")
	if rec.Totals.VATBps > 0 {
		taxLabel += " (" + formatBps(rec.Totals.VATBps) + "%)"
	}
	rows := []kv{
		{t("invoice.subtotal"), FormatMoney(rec.Totals.Subtotal, rec.Totals.Currency)},
		{taxLabel, FormatMoney(rec.Totals.Tax, rec.Totals.Currency)},
		{t("invoice.shipping"), FormatMoney(rec.Totals.Shipping, rec.Totals.Currency)},
	}
	if rec.Totals.Discount > 0 {
		rows = append(rows, kv{t("invoice.discount"), FormatMoney(-rec.Totals.Discount, rec.Totals.Currency)})
	}

	pdf.SetFont(p.family, "", 9)
	for _, row := range rows {
		pdf.SetX(x)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(labelW, 13, p.tr(row.label), "", 0, "L", false, 0, "")
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(summaryWidth-labelW, 13, p.tr(row.value), "", 2, "R", false, 0, "")
	}

	pdf.SetX(x)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(x, pdf.GetY()+2, x+summaryWidth, pdf.GetY()+2)
	pdf.Ln(6)
	pdf.SetX(x)
	pdf.SetFont(p.family, "B", 11)
	pdf.CellFormat(labelW, 16, p.tr(t("invoice.grand_total")), "", 0, "L", false, 0, "")
	pdf.CellFormat(summaryWidth-labelW, 16, p.tr(FormatMoney(rec.Totals.GrandTotal, rec.Totals.Currency)), "", 2, "R", false, 0, "")
	pdf.Ln(16)
}

func (r *Renderer) footer(p *page, rec Record, t func(string) string) {
	pdf := p.pdf
	textW := p.width - 2*marginX - summaryWidth - 20

	terms := rec.Terms
	if terms == "" {
		terms = t("invoice.terms_default")
	}
	thanks := rec.Thanks
	if thanks == "" {
		thanks = t("invoice.thanks_default")
	}

	y := pdf.GetY()
	pdf.SetXY(marginX, y)
	pdf.SetFont(p.family, "B", 9)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(textW, 12, p.tr(t("invoice.terms_title")), "", 2, "L", false, 0, "")
	pdf.SetFont(p.family, "", 8)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetX(marginX)
	pdf.MultiCell(textW, 11, p.tr(terms), "", "L", false)

	pdf.Ln(6)
	pdf.SetX(marginX)
	pdf.SetFont(p.family, "B", 9)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(textW, 12, p.tr(t("invoice.thanks_title")), "", 2, "L", false, 0, "")
	pdf.SetFont(p.family, "", 8)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetX(marginX)
	pdf.MultiCell(textW, 11, p.tr(thanks), "", "L", false)

	sigX := p.width - marginX - summaryWidth
	pdf.SetXY(sigX, y)
	pdf.SetFont(p.family, "", 9)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(summaryWidth, 12, p.tr(t("invoice.signature")), "", 2, "C", false, 0, "")
	pdf.SetXY(sigX, y+70)
	pdf.SetDrawColor(160, 160, 160)
	pdf.Line(sigX+30, y+70, sigX+summaryWidth-30, y+70)
	signer := rec.Signer
	if signer == "" {
		signer = rec.Store.Name
	}
	pdf.SetFont(p.family, "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(sigX, y+74)
	pdf.CellFormat(summaryWidth, 10, p.tr(signer), "", 0, "C", false, 0, "")
}

func formatBps(bps int) string {
	whole := bps / 100
	frac := bps % 100
	if frac == 0 {
		return strconv.Itoa(whole)
	}
	s := strconv.Itoa(whole) + "." + pad2(int64(frac))
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}
