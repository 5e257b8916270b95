package services

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalog-aggregator-api/internal/models"
	"catalog-aggregator-api/pkg/utils"
)

// Normalizer turns raw source records into canonical products.
type Normalizer struct {
	// DefaultBrand is used when a record carries no brand of its own.
	DefaultBrand string
	Now          func() time.Time
}

func NewNormalizer(defaultBrand string) *Normalizer {
	return &Normalizer{DefaultBrand: defaultBrand, Now: time.Now}
}

// ProductID derives the product identity from its canonical link.
// The same link always yields the same id.
func ProductID(link string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link))
}

func (n *Normalizer) Normalize(raw models.RawRecord) (models.Product, error) {
	link, err := canonicalLink(raw.Link)
	if err != nil {
		return models.Product{}, err
	}

	name := utils.CollapseWhitespace(raw.Name)
	if name == "" {
		return models.Product{}, &models.NormalizationError{Link: link, Field: "name", Reason: "missing"}
	}

	price, err := utils.ParsePrice(raw.Price)
	if err != nil {
		return models.Product{}, &models.NormalizationError{Link: link, Field: "price", Reason: err.Error()}
	}

	brand := utils.CollapseWhitespace(raw.Brand)
	if brand == "" {
		brand = n.DefaultBrand
	}

	released := models.DateOf(n.now())
	if r := strings.TrimSpace(raw.Released); r != "" {
		released, err = models.ParseDate(r)
		if err != nil {
			return models.Product{}, &models.NormalizationError{Link: link, Field: "released", Reason: err.Error()}
		}
	}

	return models.Product{
		UUID:     ProductID(link),
		Name:     name,
		Brand:    brand,
		Price:    price,
		Link:     link,
		Photo:    strings.TrimSpace(raw.Photo),
		Released: released,
	}, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// canonicalLink requires an absolute http(s) URL, lowercases scheme and
// host and drops the fragment.
func canonicalLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &models.NormalizationError{Field: "link", Reason: "missing"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &models.NormalizationError{Link: raw, Field: "link", Reason: err.Error()}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &models.NormalizationError{Link: raw, Field: "link", Reason: "not an absolute http(s) url"}
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}
