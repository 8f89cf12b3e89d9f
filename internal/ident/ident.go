// Package ident maps every accepted spelling of an order or rider identifier
// to one canonical form. The backends disagree on casing and zero-padding
// ("ord-7", "ORD-7", "ORD-0007" are the same order), so every id crossing a
// package boundary goes through Normalize exactly once.
package ident

import (
	"fmt"
	"regexp"
	"strconv"
)

type Kind int

const (
	KindOrder Kind = iota
	KindRider
)

// Accepted prefix/padding variants live in this one table. A new backend id
// shape is added here and nowhere else.
var patterns = map[Kind][]*regexp.Regexp{
	KindOrder: {
		regexp.MustCompile(`(?i)^ord-?(\d+)$`),
		regexp.MustCompile(`(?i)^order-?(\d+)$`),
	},
	KindRider: {
		regexp.MustCompile(`(?i)^rider-?(\d+)$`),
		regexp.MustCompile(`(?i)^r-?(\d+)$`),
	},
}

var canonicalFormat = map[Kind]string{
	KindOrder: "ORD-%04d",
	KindRider: "RIDER-%04d",
}

// Normalize returns the canonical spelling of raw. Ids that match no known
// pattern are their own canonical form: unknown shapes introduced by a newer
// backend degrade to exact-match instead of erroring. That permissiveness is
// deliberate.
func Normalize(raw string, kind Kind) string {
	for _, re := range patterns[kind] {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// numeric tail too large for int; keep the raw spelling
			return raw
		}
		return fmt.Sprintf(canonicalFormat[kind], n)
	}
	return raw
}

// Order and Rider are shorthands for the two kinds.
func Order(raw string) string { return Normalize(raw, KindOrder) }
func Rider(raw string) string { return Normalize(raw, KindRider) }
