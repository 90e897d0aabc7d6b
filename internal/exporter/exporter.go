// Package exporter writes catalog products as a CSV sheet the importer accepts back, or as XML
// with nested variants.
package exporter

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/importer"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatXML Format = "xml"
)

// ParseFormat defaults to CSV when raw is empty.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXML:
		return FormatXML, nil
	}
	return "", apperr.Validation("invalid_format", fmt.Sprintf("unsupported export format %q", raw))
}

func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the attachment name, e.g. products_export_2026-01-19.csv.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("products_export_%s.%s", now.Format("2006-01-02"), f)
}

// Selection picks explicit products when ProductIDs is set, otherwise everything Filter matches.
type Selection struct {
	ProductIDs []string
	Filter     catalog.Filter
}

type Exporter struct {
	Store catalog.Repository
	Log   *zap.Logger
	Now   func() time.Time
}

func New(store catalog.Repository, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{Store: store, Log: log, Now: time.Now}
}

// Export writes the selection to w and returns the number of products written.
func (e *Exporter) Export(ctx context.Context, sel Selection, f Format, w io.Writer) (int, error) {
	filter := sel.Filter
	if len(sel.ProductIDs) > 0 {
		filter = catalog.Filter{IDs: sel.ProductIDs}
	}
	products, err := e.Store.ListProducts(ctx, filter)
	if err != nil {
		return 0, e.storage("list products", err)
	}
	cats, err := e.categoryNames(ctx)
	if err != nil {
		return 0, err
	}

	switch f {
	case FormatCSV:
		err = writeCSV(w, products, cats)
	case FormatXML:
		err = e.writeXML(ctx, w, products, cats)
	default:
		return 0, apperr.Validation("invalid_format", fmt.Sprintf("unsupported export format %q", f))
	}
	if err != nil {
		return 0, err
	}
	e.Log.Info("catalog exported", zap.String("format", string(f)), zap.Int("products", len(products)))
	return len(products), nil
}

func (e *Exporter) categoryNames(ctx context.Context) (map[string]string, error) {
	list, err := e.Store.Categories(ctx)
	if err != nil {
		return nil, e.storage("list categories", err)
	}
	names := make(map[string]string, len(list))
	for _, c := range list {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (e *Exporter) storage(op string, err error) error {
	e.Log.Error("export storage failure", zap.String("op", op), zap.Error(err))
	return apperr.Storage("export failed", err)
}

func writeCSV(w io.Writer, products []catalog.Product, cats map[string]string) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(importer.Columns()); err != nil {
		return err
	}
	for _, p := range products {
		oldPrice := ""
		if p.OldPrice != nil {
			oldPrice = p.OldPrice.String()
		}
		// Same order as importer.Columns.
		rec := []string{
			p.SKU, p.Title, cats[p.CategoryID], p.Price.String(), strconv.Itoa(p.Stock),
			p.ID, p.Currency, oldPrice, p.Description, p.Material,
			p.Size, p.Dimensions, p.Weight, strings.Join(p.Tags, ";"), strings.Join(p.Images, ";"), p.SEOTitle,
			p.SEODescription, p.Slug, string(p.Visibility),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type xmlCatalog struct {
	XMLName  xml.Name     `xml:"catalog"`
	Exported string       `xml:"exported,attr"`
	Count    int          `xml:"count,attr"`
	Products []xmlProduct `xml:"product"`
}

type xmlProduct struct {
	ID             string       `xml:"id,attr"`
	SKU            string       `xml:"sku,attr"`
	Active         bool         `xml:"active,attr"`
	Visibility     string       `xml:"visibility,attr"`
	Title          string       `xml:"title"`
	Slug           string       `xml:"slug"`
	Category       xmlCategory  `xml:"category"`
	Price          string       `xml:"price"`
	OldPrice       string       `xml:"old_price,omitempty"`
	Currency       string       `xml:"currency"`
	Stock          int          `xml:"stock"`
	Description    string       `xml:"description,omitempty"`
	Material       string       `xml:"material,omitempty"`
	Size           string       `xml:"size,omitempty"`
	Dimensions     string       `xml:"dimensions,omitempty"`
	Weight         string       `xml:"weight,omitempty"`
	Tags           *xmlTags     `xml:"tags,omitempty"`
	Images         *xmlImages   `xml:"images,omitempty"`
	SEOTitle       string       `xml:"seo_title,omitempty"`
	SEODescription string       `xml:"seo_description,omitempty"`
	Variants       *xmlVariants `xml:"variants,omitempty"`
}

// Wrappers are pointers so empty lists leave no empty parent element behind.
type xmlTags struct {
	Tag []string `xml:"tag"`
}

type xmlImages struct {
	Image []string `xml:"image"`
}

type xmlVariants struct {
	Variant []xmlVariant `xml:"variant"`
}

type xmlCategory struct {
	ID   string `xml:"id,attr"`
	Name string `xml:",chardata"`
}

type xmlVariant struct {
	SKU    string `xml:"sku,attr"`
	Color  string `xml:"color,attr,omitempty"`
	Size   string `xml:"size,attr,omitempty"`
	Price  string `xml:"price,attr"`
	Stock  int    `xml:"stock,attr"`
	Active bool   `xml:"active,attr"`
}

func (e *Exporter) writeXML(ctx context.Context, w io.Writer, products []catalog.Product, cats map[string]string) error {
	doc := xmlCatalog{
		Exported: e.Now().UTC().Format(time.RFC3339),
		Count:    len(products),
		Products: make([]xmlProduct, 0, len(products)),
	}
	for _, p := range products {
		vs, err := e.Store.Variants(ctx, p.ID)
		if err != nil {
			return e.storage("list variants", err)
		}
		xp := xmlProduct{
			ID:             p.ID,
			SKU:            p.SKU,
			Active:         p.IsActive,
			Visibility:     string(p.Visibility),
			Title:          p.Title,
			Slug:           p.Slug,
			Category:       xmlCategory{ID: p.CategoryID, Name: cats[p.CategoryID]},
			Price:          p.Price.String(),
			Currency:       p.Currency,
			Stock:          p.Stock,
			Description:    p.Description,
			Material:       p.Material,
			Size:           p.Size,
			Dimensions:     p.Dimensions,
			Weight:         p.Weight,
			SEOTitle:       p.SEOTitle,
			SEODescription: p.SEODescription,
		}
		if p.OldPrice != nil {
			xp.OldPrice = p.OldPrice.String()
		}
		if len(p.Tags) > 0 {
			xp.Tags = &xmlTags{Tag: p.Tags}
		}
		if len(p.Images) > 0 {
			xp.Images = &xmlImages{Image: p.Images}
		}
		if len(vs) > 0 {
			xp.Variants = &xmlVariants{}
		}
		for _, v := range vs {
			xp.Variants.Variant = append(xp.Variants.Variant, xmlVariant{
				SKU:    v.SKU,
				Color:  v.Color,
				Size:   v.Size,
				Price:  v.Price.String(),
				Stock:  v.Stock,
				Active: v.IsActive,
			})
		}
		doc.Products = append(doc.Products, xp)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
