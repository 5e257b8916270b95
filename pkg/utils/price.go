package utils

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptyPrice      = errors.New("price is empty")
	ErrNonNumericPrice = errors.New("price is not numeric")
	ErrNegativePrice   = errors.New("price is negative")
	ErrPriceOutOfRange = errors.New("price is out of range")

	priceNumberRe  = regexp.MustCompile(`-?\d[\d.,]*`)
	decimalCommaRe = regexp.MustCompile(`,\d{1,2}$`)
	exponentRe     = regexp.MustCompile(`^[eE][+-]?\d`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// ParsePrice converts a scraped price string ("$49.99", "39,90 €", "1,299")
// into whole currency units. Fractions are truncated.
func ParsePrice(priceStr string) (int, error) {
	cleanPrice := strings.TrimSpace(priceStr)
	if cleanPrice == "" {
		return 0, ErrEmptyPrice
	}

	loc := priceNumberRe.FindStringIndex(cleanPrice)
	if loc == nil {
		return 0, ErrNonNumericPrice
	}
	// "1e30" is scientific notation, not a price of 1.
	if exponentRe.MatchString(cleanPrice[loc[1]:]) {
		return 0, ErrNonNumericPrice
	}
	match := cleanPrice[loc[0]:loc[1]]
	negative := strings.HasPrefix(match, "-")
	match = strings.TrimPrefix(match, "-")
	match = strings.TrimRight(match, ".,")

	price, err := strconv.ParseFloat(normalizeSeparators(match), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrNonNumericPrice
	}
	if negative && price > 0 {
		return 0, ErrNegativePrice
	}
	// float64(math.MaxInt) rounds up, so equality is already out of range.
	if price >= float64(math.MaxInt) {
		return 0, ErrPriceOutOfRange
	}

	return int(math.Trunc(price)), nil
}

// normalizeSeparators turns locale formatted numbers into a form
// strconv understands. The right-most separator is the decimal one when
// both kinds appear; a lone comma is decimal only before one or two digits.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && decimalCommaRe.MatchString(s) {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// CollapseWhitespace trims s and folds every whitespace run into one space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
