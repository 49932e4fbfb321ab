// AngelaMos | 2026
// discount.go

package offer

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrUnparseablePrice = errors.New("price is not numeric")
	ErrZeroPrice        = errors.New("original price is zero")
)

var (
	amountPattern = regexp.MustCompile(`-?\d[\d, ]*(?:\.\d+)?`)
	digitPattern  = regexp.MustCompile(`\d`)
)

// ParsePrice reads the first amount in s, so "₹1,000", "Rs. 1,000" and
// "USD 1,000.00" all read as 1000. Commas and spaces group digits. A second
// amount anywhere in s makes the price ambiguous and is rejected.
func ParsePrice(s string) (float64, error) {
	loc := amountPattern.FindStringIndex(s)
	if loc == nil || digitPattern.MatchString(s[loc[1]:]) {
		return 0, ErrUnparseablePrice
	}

	amount := strings.NewReplacer(",", "", " ", "").Replace(s[loc[0]:loc[1]])
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrUnparseablePrice
	}

	return v, nil
}

// DiscountPercentage returns round(100*(original-discounted)/original),
// rounding halves up.
func DiscountPercentage(original, discounted string) (int, error) {
	orig, err := ParsePrice(original)
	if err != nil {
		return 0, err
	}
	if orig == 0 {
		return 0, ErrZeroPrice
	}

	disc, err := ParsePrice(discounted)
	if err != nil {
		return 0, err
	}

	return int(math.Floor(100*(orig-disc)/orig + 0.5)), nil
}
