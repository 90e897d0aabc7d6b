package httpx

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/importer"
)

// multipartOverhead is headroom for form fields and part headers on top of the file limit.
const multipartOverhead = 1 << 20

type ImportHandler struct {
	Importer *importer.Importer
}

func (h *ImportHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireStaff)
		r.Post("/admin/import", h.importCSV)
		r.Get("/admin/import", h.csvInfo)
		r.Post("/admin/import/wordpress-variants", h.importWXR)
		r.Get("/admin/import/wordpress-variants", h.wxrUsage)
	})
}

// parseForm caps the body at limit files plus overhead before reading any of it.
func (h *ImportHandler) parseForm(w http.ResponseWriter, r *http.Request, files int) error {
	limit := h.Importer.MaxFileBytes*int64(files) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("file_too_large",
				fmt.Sprintf("upload exceeds the %d MB limit", h.Importer.MaxFileBytes>>20))
		}
		return apperr.Validation("invalid_form", "expected a multipart/form-data upload")
	}
	return nil
}

func flags(r *http.Request, names ...string) (map[string]bool, error) {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		v, err := importer.ParseFlag(n, r.FormValue(n))
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

func (h *ImportHandler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := flags(r, "validateOnly", "updateExisting", "skipInvalid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mapping, err := importer.ParseCategoryMapping(r.FormValue("categoryMapping"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Validation("file_required", "no file selected"))
		return
	}
	defer file.Close()
	if err := h.Importer.CheckFile(hdr.Filename, hdr.Size, ".csv"); err != nil {
		writeError(w, r, err)
		return
	}

	opts := importer.CSVOptions{
		ValidateOnly:    f["validateOnly"],
		UpdateExisting:  f["updateExisting"],
		SkipInvalid:     f["skipInvalid"],
		CategoryMapping: mapping,
	}
	res, err := h.Importer.ImportCSV(r.Context(), file, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := "import completed with errors"
	switch {
	case opts.ValidateOnly:
		msg = "validation completed"
	case res.Success:
		msg = "import completed"
	}
	writeJSON(w, http.StatusOK, envelope{Success: res.Success, Data: res, Message: msg})
}

func (h *ImportHandler) csvInfo(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "sample":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="sample_products.csv"`)
		_, _ = w.Write(importer.SampleCSV())
	case "validate":
		writeData(w, http.StatusOK, importer.CSVSchema(h.Importer.MaxFileBytes), "")
	default:
		writeError(w, r, apperr.Validation("unknown_action", "action must be sample or validate"))
	}
}

// maxWXRFiles bounds one request; each file may be up to MaxFileBytes.
const maxWXRFiles = 10

func (h *ImportHandler) importWXR(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, maxWXRFiles); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := flags(r, "updateExisting", "skipInvalid", "autoCreateCategories", "createAllVariants")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mapping, err := importer.ParseCategoryMapping(r.FormValue("categoryMapping"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		writeError(w, r, apperr.Validation("file_required", "no files provided"))
		return
	}
	if len(headers) > maxWXRFiles {
		writeError(w, r, apperr.Validation("too_many_files", fmt.Sprintf("at most %d files per import", maxWXRFiles)))
		return
	}

	sources := make([]importer.Source, 0, len(headers))
	for _, hdr := range headers {
		if !isXMLUpload(hdr) {
			writeError(w, r, apperr.Validation("unsupported_file",
				fmt.Sprintf("invalid file type: %s, expected an XML file", hdr.Filename)))
			return
		}
		if err := h.Importer.CheckFile(hdr.Filename, hdr.Size); err != nil {
			writeError(w, r, err)
			return
		}
		file, err := hdr.Open()
		if err != nil {
			writeError(w, r, apperr.Validation("invalid_form", "cannot read "+hdr.Filename))
			return
		}
		defer file.Close()
		sources = append(sources, importer.Source{Name: hdr.Filename, Reader: file})
	}

	opts := importer.WXROptions{
		DefaultCurrency:      strings.ToUpper(strings.TrimSpace(r.FormValue("defaultCurrency"))),
		UpdateExisting:       f["updateExisting"],
		SkipInvalid:          f["skipInvalid"],
		AutoCreateCategories: f["autoCreateCategories"],
		CreateAllVariants:    f["createAllVariants"],
		CategoryMapping:      mapping,
	}
	res, err := h.Importer.ImportWXR(r.Context(), sources, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := fmt.Sprintf("import finished: processed %d, created %d, updated %d, variants created %d",
		res.Processed, res.Created, res.Updated, res.VariantsCreated)
	writeJSON(w, http.StatusOK, envelope{Success: res.Success, Data: res, Message: msg})
}

func isXMLUpload(hdr *multipart.FileHeader) bool {
	ct := hdr.Header.Get("Content-Type")
	return strings.HasSuffix(strings.ToLower(hdr.Filename), ".xml") ||
		strings.HasPrefix(ct, "text/xml") || strings.HasPrefix(ct, "application/xml")
}

type wxrUsageDoc struct {
	Method      string            `json:"method"`
	ContentType string            `json:"contentType"`
	Fields      map[string]string `json:"fields"`
}

func (h *ImportHandler) wxrUsage(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, wxrUsageDoc{
		Method:      http.MethodPost,
		ContentType: "multipart/form-data",
		Fields: map[string]string{
			"files":                fmt.Sprintf("WXR XML file(s) to import, at most %d (required)", maxWXRFiles),
			"defaultCurrency":      "currency for imported products (default: " + h.Importer.DefaultCurrency + ")",
			"updateExisting":       "update products whose SKU already exists (default: false)",
			"skipInvalid":          "skip invalid products instead of aborting (default: false)",
			"autoCreateCategories": "create missing categories by name (default: false)",
			"createAllVariants":    "create every color x size combination (default: false)",
			"categoryMapping":      "JSON object mapping category names to ids (optional)",
		},
	}, "WordPress variants import endpoint")
}
