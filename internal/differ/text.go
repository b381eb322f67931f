// Package differ compares table snapshots and object definitions and produces
// report records describing the drift of a target from the base.
package differ

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity thresholds for pairing lines inside a replaced block.
const (
	pairFloor  = 0.74
	pairCutoff = 0.75
)

// DiffLines aligns two normalized line sequences and returns only the changed
// lines, prefixed "- " (base only) or "+ " (target only), in alignment order.
//
// Inside a replaced block the most similar base/target lines are paired and
// emitted as "- "/"+ " neighbours, recursively on both sides of the pair.
// A block with no similar lines is emitted shorter side first.
func DiffLines(base, target []string) []string {
	m := difflib.NewMatcher(base, target)
	var out []string
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'd':
			out = appendPrefixed(out, "- ", base[op.I1:op.I2])
		case 'i':
			out = appendPrefixed(out, "+ ", target[op.J1:op.J2])
		case 'r':
			out = fancyReplace(out, base, op.I1, op.I2, target, op.J1, op.J2)
		}
	}
	return out
}

func fancyReplace(out, a []string, alo, ahi int, b []string, blo, bhi int) []string {
	cruncher := difflib.NewMatcherWithJunk(nil, nil, true, isCharJunk)
	bestRatio := pairFloor
	bestI, bestJ := -1, -1
	eqI, eqJ := -1, -1

	for j := blo; j < bhi; j++ {
		cruncher.SetSeq2(chars(b[j]))
		for i := alo; i < ahi; i++ {
			if a[i] == b[j] {
				if eqI < 0 {
					eqI, eqJ = i, j
				}
				continue
			}
			cruncher.SetSeq1(chars(a[i]))
			if cruncher.RealQuickRatio() > bestRatio &&
				cruncher.QuickRatio() > bestRatio &&
				cruncher.Ratio() > bestRatio {
				bestRatio, bestI, bestJ = cruncher.Ratio(), i, j
			}
		}
	}

	identical := false
	if bestRatio < pairCutoff {
		if eqI < 0 {
			return plainReplace(out, a, alo, ahi, b, blo, bhi)
		}
		bestI, bestJ, identical = eqI, eqJ, true
	}

	out = fancyHelper(out, a, alo, bestI, b, blo, bestJ)
	if !identical {
		out = append(out, "- "+a[bestI], "+ "+b[bestJ])
	}
	return fancyHelper(out, a, bestI+1, ahi, b, bestJ+1, bhi)
}

func fancyHelper(out, a []string, alo, ahi int, b []string, blo, bhi int) []string {
	switch {
	case alo < ahi && blo < bhi:
		return fancyReplace(out, a, alo, ahi, b, blo, bhi)
	case alo < ahi:
		return appendPrefixed(out, "- ", a[alo:ahi])
	case blo < bhi:
		return appendPrefixed(out, "+ ", b[blo:bhi])
	}
	return out
}

func plainReplace(out, a []string, alo, ahi int, b []string, blo, bhi int) []string {
	if bhi-blo < ahi-alo {
		out = appendPrefixed(out, "+ ", b[blo:bhi])
		return appendPrefixed(out, "- ", a[alo:ahi])
	}
	out = appendPrefixed(out, "- ", a[alo:ahi])
	return appendPrefixed(out, "+ ", b[blo:bhi])
}

func chars(s string) []string {
	return strings.Split(s, "")
}

func isCharJunk(s string) bool {
	return s == " " || s == "\t"
}

func appendPrefixed(out []string, prefix string, lines []string) []string {
	for _, l := range lines {
		out = append(out, prefix+l)
	}
	return out
}
