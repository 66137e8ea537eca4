package infra

// pdf.go: order summary generation using go-pdf/fpdf.
// A5 page with store header, order id and date, item table with size,
// subtotal / discount / shipping / total, and the shipping and payment method.
// The output file is saved to storagePath/<orden id>.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tienda/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateOrdenPDF renders the summary of a placed order and returns the
// path of the written file. storagePath is created if needed.
func GenerateOrdenPDF(orden *model.Orden, nombreTienda, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, orden.ID+".pdf")

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(8, 8, 8)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 16

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(nombreTienda), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Resumen de pedido", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Pedido N° %d", orden.Numero)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, orden.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, tr(orden.ClienteNombre+" · "+orden.ClienteEmail), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.Line(8, pdf.GetY(), pageW-8, pdf.GetY())
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.46
	col2 := contentW * 0.18
	col3 := contentW * 0.12
	col4 := contentW * 0.24

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Talla", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col4, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, item := range orden.Items {
		nombre := item.Nombre
		if len(nombre) > 30 {
			nombre = nombre[:29] + "…"
		}
		pdf.CellFormat(col1, 5, tr(nombre), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, tr(tallaDe(item.Size)), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+item.Subtotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(8, pdf.GetY(), pageW-8, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	label := col1 + col2 + col3
	pdf.CellFormat(label, 5, "Subtotal:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 5, "$"+orden.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	if !orden.Descuento.IsZero() {
		code := ""
		if orden.Promo != nil {
			code = " (" + orden.Promo.Code + ")"
		}
		pdf.CellFormat(label, 5, tr("Descuento"+code+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, "-$"+orden.Descuento.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(label, 5, tr("Envío:"), "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 5, "$"+orden.CostoEnvio.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(label, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+orden.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 8)
	envio := "Envío a domicilio"
	if orden.MetodoEnvio == "metro" {
		envio = "Entrega en metro " + orden.EstacionMetro
	}
	pdf.CellFormat(contentW, 4, tr(envio), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, tr("Pago: "+orden.MetodoPago), "", 1, "L", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por tu compra!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// tallaDe extracts the bare size from a size key string.
func tallaDe(sizeKey string) string {
	if i := strings.LastIndex(sizeKey, model.SizeKeySep); i >= 0 {
		return sizeKey[i+len(model.SizeKeySep):]
	}
	return sizeKey
}
