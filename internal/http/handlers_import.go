package http

import (
	"errors"
	"io"
	"net/http"

	"finanzen/internal/core"
	"finanzen/internal/importer"
	"finanzen/internal/log"
)

// multipartOverhead is allowed on top of the file size for form boundaries
// and the other parts.
const multipartOverhead = 64 << 10

// importResult is an import record plus how many rows the rules categorized.
type importResult struct {
	core.Import
	Categorized int `json:"categorized"`
}

// handleUpload stores an uploaded bank CSV and, unless disabled, runs the
// categorization rules over the new rows.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := NewQueryParams(r)
	format := q.String("format")
	autoCategorize := q.Bool("auto_categorize", true)
	if err := q.Err(); err != nil {
		s.writeError(w, r, err, log.ComponentImport, log.OpImport)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.options.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(s.options.MaxUploadBytes).Write(w)
			return
		}
		BadRequestError("Ungültige Multipart-Anfrage").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, core.Invalid("file", "is required"), log.ComponentImport, log.OpImport)
		return
	}
	defer file.Close()

	if err := importer.CheckFilename(header.Filename); err != nil {
		BadRequestError("Nur CSV-Dateien werden unterstützt").Write(w)
		return
	}
	if header.Size > s.options.MaxUploadBytes {
		RequestTooLargeError(s.options.MaxUploadBytes).Write(w)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, err, log.ComponentImport, log.OpImport)
		return
	}
	content, err := importer.DecodeUpload(raw)
	if err != nil {
		BadRequestError("Datei-Encoding konnte nicht erkannt werden").Write(w)
		return
	}

	imp, err := s.svc.Imports.Import(ctx, content, sanitizeInput(header.Filename), format)
	if err != nil {
		s.writeError(w, r, err, log.ComponentImport, log.OpImport)
		return
	}

	result := importResult{Import: imp}
	if autoCategorize && imp.TransactionsNew > 0 {
		n, err := s.svc.Categorization.ApplyToAllUncategorized(ctx)
		if err != nil {
			// The import is committed; categorization can be re-run via /api/rules/apply.
			log.FromContext(ctx).WarnContext(ctx, "Auto-categorization after import failed",
				log.FieldImportID, imp.ID, log.FieldError, err.Error())
		}
		result.Categorized = n
	}

	s.recordImport(imp.TransactionsNew, imp.TransactionsDuplicate, result.Categorized)
	NewJSONResponse().Status(http.StatusCreated).JSON(result).Write(w)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Imports.History(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.ComponentImport, log.OpList)
		return
	}
	if items == nil {
		items = []core.Import{}
	}
	NewJSONResponse().JSON(items).Write(w)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, err, log.ComponentImport, log.OpRead)
		return
	}
	imp, err := s.svc.Imports.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.ComponentImport, log.OpRead)
		return
	}
	NewJSONResponse().JSON(imp).Write(w)
}
