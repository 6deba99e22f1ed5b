// Package conversation derives the key that addresses a two-party conversation.
package conversation

import "strings"

// Separator joins the two sorted participant identifiers.
const Separator = "_"

const escape = `\`

var escaper = strings.NewReplacer(escape, escape+escape, Separator, escape+Separator)

// ID returns the order-independent conversation key for a and b:
// ID(a, b) == ID(b, a) for every pair. Separator and escape characters inside
// an identifier are escaped, so distinct pairs never share a key.
func ID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return escaper.Replace(a) + Separator + escaper.Replace(b)
}
