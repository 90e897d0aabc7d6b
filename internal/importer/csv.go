package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/metrics"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvRow struct {
	line      int
	productID string
	category  string
	slug      string
	product   catalog.Product
}

// ImportCSV imports a product sheet. A missing required column is a structural error and
// returns no result; row problems are reported in the result.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, opts CSVOptions) (Result, error) {
	cr, cols, err := openCSV(r)
	if err != nil {
		return Result{}, err
	}

	res := newResult()
	cats := newCategories(im.Store, opts.CategoryMapping)
	var rows []csvRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		// The reader resumes on the next record after a quoting error, so only that row is lost.
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			res.Processed++
			rowProblem(&res, opts, pe.StartLine, []string{pe.Err.Error()})
			continue
		}
		if err != nil {
			return Result{}, apperr.Structural("malformed CSV", []string{err.Error()})
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		res.Processed++

		row, problems := im.parseRow(line, rec, cols)
		if len(problems) == 0 {
			if id, ok, err := cats.mapped(ctx, row.category); err != nil {
				return Result{}, im.storage("resolve category mapping", err)
			} else if id != "" && !ok {
				problems = append(problems, fmt.Sprintf("category %q is mapped to unknown id %s", row.category, id))
			}
		}
		if len(problems) > 0 {
			rowProblem(&res, opts, line, problems)
			continue
		}
		rows = append(rows, row)
	}

	if len(res.Errors) > 0 {
		res.Success = false
		im.finish("csv", opts.ValidateOnly, res)
		return res, nil
	}
	if opts.ValidateOnly {
		if err := im.simulateCSV(ctx, rows, opts, &res); err != nil {
			return Result{}, err
		}
		im.finish("csv", true, res)
		return res, nil
	}

	written := res
	err = im.Store.WithinTx(ctx, func(repo catalog.Repository) error {
		written = res
		cats := newCategories(repo, opts.CategoryMapping)
		for _, row := range rows {
			if err := writeRow(ctx, repo, cats, row, opts, &written); err != nil {
				return fmt.Errorf("row %d: %w", row.line, err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, im.storage("write csv rows", err)
	}
	im.finish("csv", false, written)
	return written, nil
}

// rowProblem records a rejected row as an error, or as a warning when invalid rows are skipped.
func rowProblem(res *Result, opts CSVOptions, line int, problems []string) {
	msg := fmt.Sprintf("row %d: %s", line, strings.Join(problems, "; "))
	if opts.SkipInvalid {
		res.Warnings = append(res.Warnings, msg+" (skipped)")
		return
	}
	res.Errors = append(res.Errors, msg)
}

func openCSV(r io.Reader) (*csv.Reader, map[string]int, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperr.Structural("file is empty", []string{"the header row is missing"})
	}
	if err != nil {
		return nil, nil, apperr.Structural("malformed CSV", []string{err.Error()})
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, "missing required column: "+c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, apperr.Structural("invalid CSV structure", missing)
	}
	return cr, cols, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (im *Importer) parseRow(line int, rec []string, cols map[string]int) (csvRow, []string) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var problems []string
	row := csvRow{line: line, productID: get("product_id"), category: get("category"), slug: get("slug")}
	p := catalog.Product{
		SKU:            get("sku"),
		Title:          get("title"),
		Description:    get("description"),
		Currency:       strings.ToUpper(get("currency")),
		Material:       get("material"),
		Size:           get("size"),
		Dimensions:     get("dimensions"),
		Weight:         get("weight"),
		Tags:           splitList(get("tags")),
		Images:         splitList(get("images")),
		SEOTitle:       get("seo_title"),
		SEODescription: get("seo_description"),
		Visibility:     catalog.Visibility(strings.ToUpper(get("visibility"))),
	}
	if p.SKU == "" {
		problems = append(problems, "sku is required")
	}
	if p.Title == "" {
		problems = append(problems, "title is required")
	}
	if row.category == "" {
		problems = append(problems, "category is required")
	}
	if row.productID != "" {
		if _, err := uuid.Parse(row.productID); err != nil {
			problems = append(problems, "product_id must be a UUID")
		}
	}

	price, ok := positiveDecimal(get("price"))
	if !ok {
		problems = append(problems, fmt.Sprintf("price %q must be a positive number", get("price")))
	}
	p.Price = price

	if raw := get("old_price"); raw != "" {
		old, ok := positiveDecimal(raw)
		if !ok {
			problems = append(problems, fmt.Sprintf("old_price %q must be a positive number", raw))
		} else {
			p.OldPrice = &old
		}
	}

	stock, err := strconv.Atoi(get("stock"))
	if err != nil || stock < 0 {
		problems = append(problems, fmt.Sprintf("stock %q must be a non-negative integer", get("stock")))
	}
	p.Stock = stock
	p.IsInStock = stock > 0

	switch {
	case p.Visibility == "":
		p.Visibility = catalog.VisibilityVisible
	case !p.Visibility.Valid():
		problems = append(problems, fmt.Sprintf("visibility %q must be VISIBLE or HIDDEN", p.Visibility))
	}
	if p.Currency == "" {
		p.Currency = im.DefaultCurrency
	}
	if row.slug == "" {
		row.slug = catalog.Slugify(p.Title)
	} else {
		row.slug = catalog.Slugify(row.slug)
	}
	row.product = p
	return row, problems
}

// positiveDecimal also accepts a comma as the decimal separator.
func positiveDecimal(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func findExisting(ctx context.Context, repo catalog.Repository, row csvRow) (catalog.Product, bool, error) {
	if row.productID != "" {
		p, err := repo.ProductByID(ctx, row.productID)
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, false, err
		}
	}
	p, err := repo.ProductBySKU(ctx, row.product.SKU)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, err
	}
	return p, true, nil
}

// writeRow runs inside the import transaction. A repeated SKU later in the same file finds
// the product written by the earlier row.
func writeRow(ctx context.Context, repo catalog.Repository, cats *categories, row csvRow, opts CSVOptions, res *Result) error {
	existing, found, err := findExisting(ctx, repo, row)
	if err != nil {
		return err
	}
	if found && !opts.UpdateExisting {
		res.warnf("row %d: product %s already exists, skipped", row.line, row.product.SKU)
		return nil
	}

	p := row.product
	if p.CategoryID, err = cats.ensure(ctx, row.category); err != nil {
		return err
	}
	if found {
		p.ID = existing.ID
		p.IsActive = existing.IsActive
	} else {
		p.IsActive = true
	}
	if p.Slug, err = uniqueSlug(ctx, repo, row.slug, p.SKU, p.ID); err != nil {
		return err
	}

	if found {
		if err := repo.UpdateProduct(ctx, &p); err != nil {
			return err
		}
		res.Updated++
		return nil
	}
	if err := repo.CreateProduct(ctx, &p); err != nil {
		return err
	}
	res.Created++
	return nil
}

// simulateCSV counts what a real run would create or update without writing.
func (im *Importer) simulateCSV(ctx context.Context, rows []csvRow, opts CSVOptions, res *Result) error {
	seen := map[string]bool{}
	for _, row := range rows {
		_, found, err := findExisting(ctx, im.Store, row)
		if err != nil {
			return im.storage("validate csv rows", err)
		}
		found = found || seen[row.product.SKU]
		seen[row.product.SKU] = true
		switch {
		case found && opts.UpdateExisting:
			res.Updated++
		case found:
			res.warnf("row %d: product %s already exists, would be skipped", row.line, row.product.SKU)
		default:
			res.Created++
		}
	}
	return nil
}

func (im *Importer) finish(format string, dryRun bool, res Result) {
	outcome := func(name string, n int) {
		if n > 0 && !dryRun {
			metrics.ImportRows.WithLabelValues(format, name).Add(float64(n))
		}
	}
	outcome("created", res.Created)
	outcome("updated", res.Updated)
	outcome("failed", len(res.Errors))
	im.Log.Info("import finished",
		zap.String("format", format),
		zap.Bool("dry_run", dryRun),
		zap.Bool("success", res.Success),
		zap.Int("processed", res.Processed),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("variants_created", res.VariantsCreated),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)))
}
