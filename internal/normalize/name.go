// Package normalize canonicalizes runner names, finish times and paces so that results
// from different timing sites can be compared with each other.
package normalize

import "strings"

// NormalizeName lowercases, trims and collapses whitespace in a runner name.
// Names written as "Last, First" are reordered to "first last".
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if last, first, ok := strings.Cut(name, ","); ok {
		name = strings.TrimSpace(first) + " " + strings.TrimSpace(last)
	}
	return strings.Join(strings.Fields(name), " ")
}

// NameMatch reports whether two runner names refer to the same person.
//
// Names match when they are equal after normalization, or when their first and
// last tokens agree. The second rule tolerates middle names and initials
// ("John Q Smith" vs "John Smith") and accepts that two different people sharing
// a first and last name are indistinguishable here; callers surface that case
// as an ambiguous result instead.
func NameMatch(a, b string) bool {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	return ta[0] == tb[0] && ta[len(ta)-1] == tb[len(tb)-1]
}
