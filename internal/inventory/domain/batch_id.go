package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"
)

const (
	batchIDPrefix     = "PAD"
	brandCodeLength   = 3
	supplierInitialsN = 3
	suffixMin         = 100
	suffixSpan        = 900
)

// BatchIDGenerator builds pad batch ids of the form
// PAD/YYYYMMDD/BRAND/SUPPLIER/NNN. Uniqueness is not checked here; callers
// insert and regenerate on conflict.
type BatchIDGenerator struct {
	intN func(n int) int
}

// NewBatchIDGenerator returns a generator backed by the shared random source
func NewBatchIDGenerator() *BatchIDGenerator {
	return &BatchIDGenerator{intN: rand.Intn}
}

// NewBatchIDGeneratorWithSource returns a generator with a fixed random
// source, for deterministic ids in tests.
func NewBatchIDGeneratorWithSource(intN func(n int) int) *BatchIDGenerator {
	return &BatchIDGenerator{intN: intN}
}

// Generate builds one candidate id for the given shipment
func (g *BatchIDGenerator) Generate(brand BrandType, supplier string, date time.Time) string {
	suffix := suffixMin + g.intN(suffixSpan)
	return fmt.Sprintf("%s/%s/%s/%s/%d",
		batchIDPrefix,
		date.Format("20060102"),
		BrandCode(brand),
		SupplierInitials(supplier),
		suffix,
	)
}

// BrandCode is the first three letters of the brand with spaces removed
func BrandCode(brand BrandType) string {
	compact := strings.Join(strings.Fields(string(brand)), "")
	runes := []rune(strings.ToUpper(compact))
	if len(runes) > brandCodeLength {
		runes = runes[:brandCodeLength]
	}
	return string(runes)
}

// SupplierInitials is the upper-cased first letter of up to three words
func SupplierInitials(supplier string) string {
	var b strings.Builder
	for i, word := range strings.Fields(supplier) {
		if i == supplierInitialsN {
			break
		}
		first := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(first))
	}
	return b.String()
}
