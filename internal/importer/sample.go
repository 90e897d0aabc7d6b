package importer

import (
	"fmt"
	"strings"
)

var (
	RequiredColumns = []string{"sku", "title", "category", "price", "stock"}
	OptionalColumns = []string{
		"product_id", "currency", "old_price", "description", "material",
		"size", "dimensions", "weight", "tags", "images", "seo_title",
		"seo_description", "slug", "visibility",
	}
)

// Columns is the full CSV header in canonical order. The exporter writes it too.
func Columns() []string {
	return append(append([]string{}, RequiredColumns...), OptionalColumns...)
}

type Schema struct {
	RequiredColumns  []string `json:"requiredColumns"`
	OptionalColumns  []string `json:"optionalColumns"`
	SupportedFormats []string `json:"supportedFormats"`
	MaxFileSize      string   `json:"maxFileSize"`
	Encoding         string   `json:"encoding"`
	ListSeparators   []string `json:"listSeparators"`
}

func CSVSchema(maxBytes int64) Schema {
	return Schema{
		RequiredColumns:  RequiredColumns,
		OptionalColumns:  OptionalColumns,
		SupportedFormats: []string{".csv"},
		MaxFileSize:      fmt.Sprintf("%dMB", maxBytes>>20),
		Encoding:         "UTF-8",
		ListSeparators:   []string{";", "|"},
	}
}

const sampleRows = `BED001,Classic Set,Постельное бельё,2500,15,,RUB,3000,"Сатин, плотность 120",сатин,Евро,200x220,1.8 kg,хит;новинка,https://example.com/img/bed001-1.jpg;https://example.com/img/bed001-2.jpg,,,,VISIBLE
PIL010,Подушка пуховая,Подушки,1200,40,,RUB,,,пух,50x70,50x70,0.9 kg,,https://example.com/img/pil010.jpg,,,,VISIBLE
BLK005,Плед флисовый,Пледы,1800,0,,RUB,,,флис,,150x200,,подарок,,Плед флисовый купить,Мягкий флисовый плед,,HIDDEN
`

// SampleCSV returns a template sheet with every supported column.
func SampleCSV() []byte {
	var b strings.Builder
	b.WriteString(strings.Join(Columns(), ","))
	b.WriteByte('\n')
	b.WriteString(sampleRows)
	return []byte(b.String())
}
