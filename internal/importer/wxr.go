package importer

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/metrics"
)

const (
	taxCategory = "product_cat"
	taxColor    = "pa_cvet"
	taxSize     = "pa_razmer"

	postProduct    = "product"
	postVariation  = "product_variation"
	postAttachment = "attachment"
)

// Source is one uploaded WXR document.
type Source struct {
	Name   string
	Reader io.Reader
}

type wxrFeed struct {
	Items []wxrItem `xml:"channel>item"`
}

type wxrItem struct {
	Title         string        `xml:"title"`
	Encoded       []encodedText `xml:"encoded"`
	PostID        string        `xml:"post_id"`
	PostParent    string        `xml:"post_parent"`
	Status        string        `xml:"status"`
	PostType      string        `xml:"post_type"`
	AttachmentURL string        `xml:"attachment_url"`
	Terms         []wxrTerm     `xml:"category"`
	Meta          []wxrMeta     `xml:"postmeta"`
}

// encodedText keeps the element namespace so content:encoded and excerpt:encoded can be told apart.
type encodedText struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type wxrTerm struct {
	Domain   string `xml:"domain,attr"`
	Nicename string `xml:"nicename,attr"`
	Name     string `xml:",chardata"`
}

type wxrMeta struct {
	Key   string `xml:"meta_key"`
	Value string `xml:"meta_value"`
}

func (it wxrItem) meta(key string) string {
	for _, m := range it.Meta {
		if strings.TrimSpace(m.Key) == key {
			return strings.TrimSpace(m.Value)
		}
	}
	return ""
}

func (it wxrItem) encoded(kind string) string {
	for _, e := range it.Encoded {
		if strings.Contains(e.XMLName.Space, kind) {
			return strings.TrimSpace(e.Value)
		}
	}
	return ""
}

type wxrProduct struct {
	postID      string
	title       string
	sku         string
	description string
	status      string
	categories  []string
	colors      attrSet
	sizes       attrSet
	price       *decimal.Decimal
	regular     *decimal.Decimal
	sale        *decimal.Decimal
	stock       *int
	images      []string
	variations  []wxrVariation
}

type wxrVariation struct {
	postID  string
	sku     string
	color   string
	size    string
	price   *decimal.Decimal
	regular *decimal.Decimal
	sale    *decimal.Decimal
	stock   *int
}

// parseWXR extracts products with their variations and resolved image URLs, in document order.
func parseWXR(r io.Reader) ([]*wxrProduct, []string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var feed wxrFeed
	if err := dec.Decode(&feed); err != nil {
		return nil, nil, err
	}

	var (
		warnings   []string
		products   []*wxrProduct
		variations []wxrItem
	)
	byID := map[string]*wxrProduct{}
	attachments := map[string]string{}
	children := map[string][]string{}
	thumbs := map[string]string{}
	galleries := map[string][]string{}
	for _, it := range feed.Items {
		id := strings.TrimSpace(it.PostID)
		switch strings.TrimSpace(it.PostType) {
		case postAttachment:
			url := strings.TrimSpace(it.AttachmentURL)
			if url == "" {
				continue
			}
			attachments[id] = url
			if parent := strings.TrimSpace(it.PostParent); parent != "" && parent != "0" {
				children[parent] = append(children[parent], url)
			}
		case postVariation:
			variations = append(variations, it)
		case postProduct:
			p := newWXRProduct(it)
			products = append(products, p)
			if id != "" {
				byID[id] = p
			}
			thumbs[id] = it.meta("_thumbnail_id")
			galleries[id] = splitIDs(it.meta("_product_image_gallery"))
		}
	}

	for _, it := range variations {
		parent, ok := byID[strings.TrimSpace(it.PostParent)]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("variation %s has no parent product %s, ignored",
				strings.TrimSpace(it.PostID), strings.TrimSpace(it.PostParent)))
			continue
		}
		parent.variations = append(parent.variations, wxrVariation{
			postID:  strings.TrimSpace(it.PostID),
			sku:     it.meta("_sku"),
			color:   it.meta("attribute_" + taxColor),
			size:    it.meta("attribute_" + taxSize),
			price:   metaDecimal(it.meta("_price")),
			regular: metaDecimal(it.meta("_regular_price")),
			sale:    metaDecimal(it.meta("_sale_price")),
			stock:   metaInt(it.meta("_stock")),
		})
	}

	for _, p := range products {
		seen := map[string]bool{}
		add := func(url string) {
			if url != "" && !seen[url] {
				seen[url] = true
				p.images = append(p.images, url)
			}
		}
		add(attachments[thumbs[p.postID]])
		for _, id := range galleries[p.postID] {
			add(attachments[id])
		}
		for _, url := range children[p.postID] {
			add(url)
		}
	}
	return products, warnings, nil
}

func newWXRProduct(it wxrItem) *wxrProduct {
	p := &wxrProduct{
		postID:  strings.TrimSpace(it.PostID),
		title:   strings.TrimSpace(it.Title),
		sku:     it.meta("_sku"),
		status:  strings.ToLower(strings.TrimSpace(it.Status)),
		price:   metaDecimal(it.meta("_price")),
		regular: metaDecimal(it.meta("_regular_price")),
		sale:    metaDecimal(it.meta("_sale_price")),
		stock:   metaInt(it.meta("_stock")),
	}
	if p.sku == "" && p.postID != "" {
		p.sku = "WP-" + p.postID
	}
	p.description = it.encoded("content")
	if p.description == "" {
		p.description = it.encoded("excerpt")
	}
	for _, t := range it.Terms {
		name := strings.TrimSpace(t.Name)
		switch t.Domain {
		case taxCategory:
			if name != "" {
				p.categories = append(p.categories, name)
			}
		case taxColor:
			p.colors.add(name, t.Nicename)
		case taxSize:
			p.sizes.add(name, t.Nicename)
		}
	}
	return p
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func metaDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil
	}
	return &d
}

// metaInt reads WooCommerce stock values such as "12" or "12.000000"; negatives become 0.
func metaInt(s string) *int {
	d := metaDecimal(s)
	if d == nil {
		return nil
	}
	n := max(int(d.IntPart()), 0)
	return &n
}

func firstPositive(ds ...*decimal.Decimal) *decimal.Decimal {
	for _, d := range ds {
		if d != nil && d.IsPositive() {
			return d
		}
	}
	return nil
}

// prices picks the lowest positive price point as the base and the highest regular
// price above it as the old price.
func (p *wxrProduct) prices() (decimal.Decimal, *decimal.Decimal, bool) {
	points := []*decimal.Decimal{p.price, p.sale, p.regular}
	regulars := []*decimal.Decimal{p.regular}
	for _, v := range p.variations {
		points = append(points, v.price, v.sale, v.regular)
		regulars = append(regulars, v.regular)
	}
	var base *decimal.Decimal
	for _, d := range points {
		if d != nil && d.IsPositive() && (base == nil || d.LessThan(*base)) {
			base = d
		}
	}
	if base == nil {
		return decimal.Zero, nil, false
	}
	var old *decimal.Decimal
	for _, d := range regulars {
		if d != nil && d.GreaterThan(*base) && (old == nil || d.GreaterThan(*old)) {
			old = d
		}
	}
	if old != nil {
		v := *old
		old = &v
	}
	return *base, old, true
}

func (p *wxrProduct) parentStock() int {
	if p.stock != nil {
		return *p.stock
	}
	sum := 0
	for _, v := range p.variations {
		if v.stock != nil {
			sum += *v.stock
		}
	}
	return sum
}

func (p *wxrProduct) label(file string) string {
	return fmt.Sprintf("%s: product %s %q", file, p.postID, p.title)
}

type wxrPlan struct {
	label    string
	category string
	product  catalog.Product
	variants []catalog.Variant
}

// ImportWXR imports the documents in order and folds their results. A document with hard
// errors stops the run unless SkipInvalid is set. Each document commits on its own, so a
// storage failure after the first document still reports what the earlier ones committed.
func (im *Importer) ImportWXR(ctx context.Context, sources []Source, opts WXROptions) (Result, error) {
	total := newResult()
	for i, src := range sources {
		res, err := im.importWXRFile(ctx, src, opts)
		if err != nil {
			im.Log.Error("wxr import aborted",
				zap.String("file", src.Name),
				zap.Int("products_committed", total.Created+total.Updated),
				zap.Error(err))
			if i == 0 {
				return Result{}, err
			}
			msg := "storage failure, file not saved"
			if ae := apperr.As(err); ae.Kind == apperr.KindConflict {
				msg = ae.Msg
			}
			total.errorf("%s: %s; remaining files were not imported", src.Name, msg)
			total.Success = false
			break
		}
		total.Merge(res)
		if !res.Success && !opts.SkipInvalid {
			break
		}
	}
	metrics.ImportVariantsCreated.Add(float64(total.VariantsCreated))
	im.finish("wxr", false, total)
	return total, nil
}

func (im *Importer) importWXRFile(ctx context.Context, src Source, opts WXROptions) (Result, error) {
	res := newResult()
	products, warnings, err := parseWXR(src.Reader)
	if err != nil {
		msg := fmt.Sprintf("%s: cannot parse XML: %v", src.Name, err)
		if opts.SkipInvalid {
			res.warnf("%s (skipped)", msg)
			return res, nil
		}
		res.Errors = append(res.Errors, msg)
		res.Success = false
		return res, nil
	}
	for _, w := range warnings {
		res.warnf("%s: %s", src.Name, w)
	}
	if len(products) == 0 {
		res.warnf("%s: no products found", src.Name)
		return res, nil
	}

	currency := strings.ToUpper(strings.TrimSpace(opts.DefaultCurrency))
	if currency == "" {
		currency = im.DefaultCurrency
	}

	var plans []wxrPlan
	for _, p := range products {
		res.Processed++
		label := p.label(src.Name)
		if p.status == "trash" {
			res.warnf("%s: in trash, skipped", label)
			continue
		}
		plan, problems := planProduct(p, currency, opts.CreateAllVariants)
		if len(problems) > 0 {
			msg := fmt.Sprintf("%s: %s", label, strings.Join(problems, "; "))
			if opts.SkipInvalid {
				res.warnf("%s (skipped)", msg)
			} else {
				res.Errors = append(res.Errors, msg)
			}
			continue
		}
		plan.label = label
		plans = append(plans, plan)
	}
	if len(res.Errors) > 0 {
		res.Success = false
		return res, nil
	}

	written := res
	err = im.Store.WithinTx(ctx, func(repo catalog.Repository) error {
		written = res
		cats := newCategories(repo, opts.CategoryMapping)
		for _, plan := range plans {
			if err := im.writePlan(ctx, repo, cats, plan, opts, &written); err != nil {
				return fmt.Errorf("%s: %w", plan.label, err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, im.storage("write wxr products", err)
	}
	return written, nil
}

func planProduct(p *wxrProduct, currency string, all bool) (wxrPlan, []string) {
	var problems []string
	if p.title == "" {
		problems = append(problems, "title is required")
	}
	if p.sku == "" {
		problems = append(problems, "neither _sku nor post id is present")
	}
	base, old, ok := p.prices()
	if !ok {
		problems = append(problems, "no positive price found")
	}
	if len(problems) > 0 {
		return wxrPlan{}, problems
	}

	overrides := make([]override, 0, len(p.variations))
	for _, v := range p.variations {
		overrides = append(overrides, override{
			color: p.colors.resolve(v.color),
			size:  p.sizes.resolve(v.size),
			sku:   v.sku,
			price: firstPositive(v.price, v.sale, v.regular),
			stock: v.stock,
		})
	}
	stock := p.parentStock()
	exp := expansion{
		parentSKU:   p.sku,
		colors:      p.colors.names(),
		sizes:       p.sizes.names(),
		overrides:   overrides,
		base:        base,
		parentStock: stock,
		all:         all,
	}

	plan := wxrPlan{
		product: catalog.Product{
			SKU:         p.sku,
			Title:       p.title,
			Description: p.description,
			Price:       base,
			OldPrice:    old,
			Currency:    currency,
			Stock:       stock,
			IsActive:    p.status == "" || p.status == "publish",
			IsInStock:   stock > 0,
			Visibility:  catalog.VisibilityVisible,
			Images:      p.images,
		},
		variants: exp.expand(),
	}
	if len(p.categories) > 0 {
		plan.category = p.categories[0]
	}
	return plan, nil
}

func (im *Importer) writePlan(ctx context.Context, repo catalog.Repository, cats *categories, plan wxrPlan, opts WXROptions, res *Result) error {
	existing, err := repo.ProductBySKU(ctx, plan.product.SKU)
	found := err == nil
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return err
	}
	if found && !opts.UpdateExisting {
		res.warnf("%s: SKU %s already exists, skipped", plan.label, plan.product.SKU)
		return nil
	}

	p := plan.product
	if p.CategoryID, err = im.wxrCategory(ctx, cats, plan.category, opts); err != nil {
		return err
	}
	if found {
		p.ID = existing.ID
		p.Material = existing.Material
		p.Size = existing.Size
		p.Dimensions = existing.Dimensions
		p.Weight = existing.Weight
		p.Tags = existing.Tags
		p.SEOTitle = existing.SEOTitle
		p.SEODescription = existing.SEODescription
		p.Visibility = existing.Visibility
	}
	if p.Slug, err = uniqueSlug(ctx, repo, catalog.Slugify(p.Title), p.SKU, p.ID); err != nil {
		return err
	}
	if found {
		err = repo.UpdateProduct(ctx, &p)
	} else {
		err = repo.CreateProduct(ctx, &p)
	}
	if err != nil {
		return err
	}
	if err := repo.ReplaceVariants(ctx, p.ID, plan.variants); err != nil {
		return err
	}
	if found {
		res.Updated++
	} else {
		res.Created++
	}
	res.VariantsCreated += len(plan.variants)
	return nil
}

// wxrCategory picks the product category: find-or-create when auto creation is on,
// otherwise mapping or an existing category, falling back to the default category.
func (im *Importer) wxrCategory(ctx context.Context, cats *categories, name string, opts WXROptions) (string, error) {
	if name != "" {
		if opts.AutoCreateCategories {
			return cats.ensure(ctx, name)
		}
		id, ok, err := cats.existing(ctx, name)
		if err != nil || ok {
			return id, err
		}
	}
	return cats.ensure(ctx, im.FallbackCategory)
}
