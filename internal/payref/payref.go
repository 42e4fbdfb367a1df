// Package payref holds the pure pieces of the bank-transfer reconciliation
// pipeline: payment reference generation, free-text SMS parsing, fuzzy amount
// comparison and bank sender validation. No state, no I/O.
package payref

import (
	"crypto/rand"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrefix is the literal prepended to generated references.
const DefaultPrefix = "SF"

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const refSuffixLen = 5

// Generate returns a fresh payment reference of the form PREFIX-XXXXX where
// the suffix is drawn uniformly from [A-Z0-9]. Uniqueness is probabilistic
// (36^5 suffixes); callers that persist references are expected to retry on
// collision.
func Generate(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	buf := make([]byte, refSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('-')
	for _, b := range buf {
		sb.WriteByte(refAlphabet[int(b)%len(refAlphabet)])
	}
	return sb.String()
}

// Reference patterns in match order, first hit wins. The generic token form
// catches references embedded anywhere in free text; the labeled forms cover
// the bank SMS templates ("Гүйлгээний утга" is the transfer-memo field label,
// "Guilgeenii utga" its Latin transliteration).
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b[A-Z]{2,4}-[A-Z0-9]{5}\b`),
	regexp.MustCompile(`(?i)Guilgeenii utga:\s*([A-Z]{2,4}-[A-Z0-9]{5})`),
	regexp.MustCompile(`(?i)Гүйлгээний утга:\s*([A-Z]{2,4}-[A-Z0-9]{5})`),
	regexp.MustCompile(`(?i)message:\s*([A-Z]{2,4}-[A-Z0-9]{5})`),
}

// ExtractReference scans free text for the first recognizable payment
// reference and returns it uppercased.
func ExtractReference(text string) (string, bool) {
	for _, re := range refPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		ref := m[0]
		if len(m) > 1 && m[1] != "" {
			ref = m[1]
		}
		return strings.ToUpper(ref), true
	}
	return "", false
}

var amountPatterns = []*regexp.Regexp{
	// number followed by a currency token
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{1,2})?)\s*(?:dungeer|төгрөг|tugrug|MNT)`),
	// comma- or space-grouped thousands
	regexp.MustCompile(`\b\d{1,3}(?:[, ]\d{3})+(?:\.\d{1,2})?\b`),
	// bare number fallback
	regexp.MustCompile(`\b\d+(?:\.\d{1,2})?\b`),
}

// ExtractAmount scans free text for a monetary amount. Grouping separators
// are stripped before parsing; only finite positive values are accepted.
func ExtractAmount(text string) (float64, bool) {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[0]
		if len(m) > 1 && m[1] != "" {
			raw = m[1]
		}
		raw = strings.NewReplacer(",", "", " ", "").Replace(raw)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
			continue
		}
		return v, true
	}
	return 0, false
}

// DefaultTolerancePercent absorbs small bank-fee deductions or rounding
// introduced by the transfer. A deliberate usability tradeoff.
const DefaultTolerancePercent = 5

// AmountsMatch reports whether actual is within tolerancePercent of expected.
func AmountsMatch(expected, actual, tolerancePercent float64) bool {
	return math.Abs(expected-actual) <= expected*tolerancePercent/100
}

// bankSenders is the allow-list of known bank SMS sender names and short
// codes. Matching is a case-insensitive substring check: a coarse filter only,
// the shared-secret check on the webhook is the real trust boundary.
var bankSenders = []string{
	"khanbank",
	"khan bank",
	"golomt",
	"tdb",
	"statebank",
	"state bank",
	"xacbank",
	"xac bank",
	"130000",
	"133133",
}

// IsBankSender reports whether sender matches any allow-listed bank identity.
func IsBankSender(sender string) bool {
	s := strings.ToLower(sender)
	for _, b := range bankSenders {
		if strings.Contains(s, b) {
			return true
		}
	}
	return false
}
