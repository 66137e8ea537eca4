package worker

// confirmacion_worker.go
// Processes order confirmation jobs from QueueConfirmacion: renders the
// order summary PDF and enqueues the email to the customer.

import (
	"context"
	"encoding/json"
	"fmt"

	"tienda/internal/infra"
	"tienda/internal/model"

	"github.com/rs/zerolog/log"
)

// OrdenLoader is the slice of the order repository the worker needs.
type OrdenLoader interface {
	FindByID(ctx context.Context, id string) (*model.Orden, error)
}

// EmailEnqueuer queues the confirmation email.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ConfirmacionWorker struct {
	ordenes        OrdenLoader
	emails         EmailEnqueuer
	nombreTienda   string
	pdfStoragePath string
	renderPDF      func(o *model.Orden, tienda, path string) (string, error)
}

func NewConfirmacionWorker(ordenes OrdenLoader, emails EmailEnqueuer, nombreTienda, pdfStoragePath string) *ConfirmacionWorker {
	return &ConfirmacionWorker{
		ordenes:        ordenes,
		emails:         emails,
		nombreTienda:   nombreTienda,
		pdfStoragePath: pdfStoragePath,
		renderPDF:      infra.GenerateOrdenPDF,
	}
}

// Process handles a single confirmation job:
//  1. parse ConfirmacionJobPayload
//  2. load the order
//  3. render the PDF summary (a render failure still sends the email, without attachment)
//  4. enqueue the email job
func (w *ConfirmacionWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ConfirmacionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("confirmacion_worker: invalid payload: %w", err)
	}

	orden, err := w.ordenes.FindByID(ctx, payload.OrdenID)
	if err != nil {
		return fmt.Errorf("confirmacion_worker: orden %s: %w", payload.OrdenID, err)
	}

	pdfPath, err := w.renderPDF(orden, w.nombreTienda, w.pdfStoragePath)
	if err != nil {
		log.Warn().Err(err).Str("orden_id", orden.ID).Msg("confirmacion_worker: PDF generation failed")
		pdfPath = ""
	} else {
		log.Info().Str("pdf", pdfPath).Str("orden_id", orden.ID).Msg("confirmacion_worker: PDF generated")
	}

	job := EmailJobPayload{
		ToEmail: orden.ClienteEmail,
		Subject: fmt.Sprintf("%s: pedido #%d recibido", w.nombreTienda, orden.Numero),
		Body: fmt.Sprintf("Hola %s,\n\nRecibimos tu pedido #%d por un total de $%s.\nTe avisaremos cuando sea confirmado.\n",
			orden.ClienteNombre, orden.Numero, orden.Total.StringFixed(2)),
		PDFPath: pdfPath,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("confirmacion_worker: enqueue email: %w", err)
	}
	return nil
}
