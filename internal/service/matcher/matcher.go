package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// Guesses shorter than this share of the target never match.
	minLengthRatioNum = 2
	minLengthRatioDen = 5

	minSimilarity = 0.75

	// A guess made of target-token prefixes needs at least this many characters.
	minPartialLen = 3
)

type Result struct {
	TitleHit  bool `json:"titleHit"`
	ArtistHit bool `json:"artistHit"`
	Correct   bool `json:"correct"`
}

// MatchGuess checks the guess against title and artist independently.
func MatchGuess(guess, title, artist string) Result {
	g := Normalize(guess)
	if g == "" {
		return Result{}
	}

	titleHit := hit(g, Normalize(title))
	artistHit := hit(g, Normalize(artist))

	return Result{
		TitleHit:  titleHit,
		ArtistHit: artistHit,
		Correct:   titleHit || artistHit,
	}
}

// Normalize lowercases, strips diacritics and punctuation and collapses whitespace.
func Normalize(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func hit(g, t string) bool {
	if g == "" || t == "" {
		return false
	}

	gLen, tLen := len([]rune(g)), len([]rune(t))
	if gLen < minGuessLen(tLen) {
		return false
	}
	if g == t {
		return true
	}

	if sharesToken(g, t) && Similarity(g, t) >= minSimilarity {
		return true
	}

	return gLen >= minPartialLen && coversPrefixes(g, t)
}

// ceil(0.4 * targetLen)
func minGuessLen(targetLen int) int {
	return (minLengthRatioNum*targetLen + minLengthRatioDen - 1) / minLengthRatioDen
}

func sharesToken(g, t string) bool {
	targetTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(t) {
		targetTokens[tok] = struct{}{}
	}
	for _, tok := range strings.Fields(g) {
		if _, ok := targetTokens[tok]; ok {
			return true
		}
	}
	return false
}

// Every guess token must be a prefix of a distinct target token.
func coversPrefixes(g, t string) bool {
	targetTokens := strings.Fields(t)
	used := make([]bool, len(targetTokens))

	for _, gt := range strings.Fields(g) {
		found := false
		for i, tt := range targetTokens {
			if used[i] || !strings.HasPrefix(tt, gt) {
				continue
			}
			used[i] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// Similarity is 1 - editDistance/max(len(a), len(b)) over runes.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func Levenshtein(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
