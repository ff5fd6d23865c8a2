// Package copywriter drafts listing names and descriptions when the user
// leaves them blank on the publish step.
package copywriter

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	geminiProviderName = "gemini"
	staticProviderName = "static"
)

// Request describes what the listing is for.
type Request struct {
	ProductTitle string
	VariantName  string
	Color        string
	Placements   []string
	Hint         string
	Locale       string
}

// Draft is a suggested listing text.
type Draft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"-"`
}

type Copywriter interface {
	Draft(ctx context.Context, req Request) (Draft, error)
}

// StaticCopywriter builds a name from the catalog data alone.
type StaticCopywriter struct{}

func NewStaticCopywriter() *StaticCopywriter {
	return &StaticCopywriter{}
}

func (s *StaticCopywriter) Draft(ctx context.Context, req Request) (Draft, error) {
	locale := normalizeLocale(req.Locale)
	c := cases.Title(language.Make(locale))

	product := strings.TrimSpace(req.ProductTitle)
	if product == "" {
		product = localized(locale, "product")
	}
	subject := strings.TrimSpace(req.Hint)
	if subject == "" {
		subject = localized(locale, "original")
	}

	name := c.String(fmt.Sprintf("%s %s", subject, product))
	if color := strings.TrimSpace(req.Color); color != "" {
		name = fmt.Sprintf("%s (%s)", name, c.String(color))
	}

	var desc string
	if locale == "id" {
		desc = fmt.Sprintf("%s dengan desain eksklusif, dicetak sesuai pesanan.", c.String(product))
	} else {
		desc = fmt.Sprintf("%s featuring an exclusive design, printed on demand.", c.String(product))
	}
	if len(req.Placements) > 1 {
		desc += " " + fmt.Sprintf(localized(locale, "placements"), strings.Join(req.Placements, ", "))
	}

	return Draft{Name: name, Description: desc, Provider: staticProviderName}, nil
}

func normalizeLocale(locale string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), "id") {
		return "id"
	}
	return "en"
}

func localized(locale, key string) string {
	texts := map[string]map[string]string{
		"en": {"product": "product", "original": "original", "placements": "Printed on: %s."},
		"id": {"product": "produk", "original": "desain orisinal", "placements": "Dicetak pada: %s."},
	}
	return texts[locale][key]
}
