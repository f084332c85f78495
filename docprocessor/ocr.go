// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// ocr.go implements the OCR text cleanup pipeline. Raw Tesseract output
// carries predictable artifacts (hyphenated line breaks, rn/m confusions,
// stray noise characters); cleaning them before chunking measurably
// improves retrieval quality. The pipeline is applied to OCR output only,
// never to natively extracted text, because the character substitutions
// would corrupt valid words there ("learn" would become "leam").
package docprocessor

import (
	"regexp"
	"strings"
	"unicode"
)

// charSubstitutions lists common OCR character confusions, applied in order
// to every word that is not purely numeric.
var charSubstitutions = []struct {
	wrong string
	right string
}{
	{"rn", "m"},
	{"vv", "w"},
	{"cl", "d"},
	{"cI", "d"},
	{"|", "l"},
	{"0", "O"},
}

// wordCorrections maps frequent whole-word OCR misreads to their fixes.
var wordCorrections = map[string]string{
	"tbe":     "the",
	"tbat":    "that",
	"witb":    "with",
	"wbich":   "which",
	"frorn":   "from",
	"tbis":    "this",
	"rnore":   "more",
	"tirne":   "time",
	"sorne":   "some",
	"corne":   "come",
	"becorne": "become",
	"narne":   "name",
	"sarne":   "same",
	"bave":    "have",
	"rnay":    "may",
	"rnake":   "make",
	"rnust":   "must",
}

var (
	brokenWordRE      = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)
	paragraphBreakRE  = regexp.MustCompile(`\n{2,}`)
	multiSpaceRE      = regexp.MustCompile(` +`)
	spaceBeforePunct  = regexp.MustCompile(` +([.,;:!?])`)
	missingSpaceAfter = regexp.MustCompile(`([.,;:!?])([A-Za-z])`)
	midWordOneRE      = regexp.MustCompile(`([a-z])1([a-z])`)
	wordCorrectionRE  = buildWordCorrectionRE()
	isolatedNoiseRE   = regexp.MustCompile(`\s[^aAiI\d]\s`)
	repeatedPunctRE   = regexp.MustCompile(`[.,;:!?]{2,}`)
	tripleNewlineRE   = regexp.MustCompile(`\n{3,}`)
)

// unicodeSpaceReplacer maps typographic space variants to plain spaces and
// strips soft hyphens left behind by justified print layouts.
var unicodeSpaceReplacer = strings.NewReplacer(
	" ", " ", // no-break space
	" ", " ", " ", " ", " ", " ", " ", " ",
	" ", " ", " ", " ", " ", " ", " ", " ",
	" ", " ", " ", " ", " ", " ",
	" ", " ", " ", " ",
	"­", "", // soft hyphen
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
)

func buildWordCorrectionRE() *regexp.Regexp {
	words := make([]string, 0, len(wordCorrections))
	for w := range wordCorrections {
		words = append(words, w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
}

// CleanOCRText normalizes raw Tesseract output for indexing: rejoins words
// hyphenated across line breaks, normalizes whitespace while keeping
// paragraph breaks, fixes common character and word misreads, and strips
// isolated noise characters.
//
// This is a pure function. Empty input is returned unchanged.
func CleanOCRText(text string) string {
	if text == "" {
		return text
	}

	text = fixBrokenWords(text)
	text = normalizeWhitespace(text)
	text = fixCharConfusions(text)
	text = fixCommonWords(text)
	text = finalCleanup(text)

	return text
}

// fixBrokenWords merges words split across lines with a trailing hyphen
// ("docu-\nment" becomes "document") and drops soft hyphens.
func fixBrokenWords(text string) string {
	text = brokenWordRE.ReplaceAllString(text, "$1$2")
	return unicodeSpaceReplacer.Replace(text)
}

// normalizeWhitespace collapses whitespace while preserving paragraph
// breaks: runs of blank lines become one paragraph break, single newlines
// within a paragraph become spaces, and punctuation spacing is repaired.
func normalizeWhitespace(text string) string {
	// Protect paragraph breaks before folding the remaining newlines.
	const marker = "\x00"
	text = paragraphBreakRE.ReplaceAllString(text, marker)
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, marker, "\n\n")

	text = multiSpaceRE.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = missingSpaceAfter.ReplaceAllString(text, "$1 $2")

	return strings.TrimSpace(text)
}

// fixCharConfusions applies the substitution table word by word. Purely
// numeric words are left alone so figures survive intact. Paragraphs are
// processed independently to keep their breaks.
func fixCharConfusions(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	for pi, para := range paragraphs {
		words := strings.Fields(para)
		for wi, word := range words {
			if isAllDigits(word) {
				continue
			}
			for _, sub := range charSubstitutions {
				word = strings.ReplaceAll(word, sub.wrong, sub.right)
			}
			// A digit 1 between lowercase letters is almost always a
			// misread l. Two passes catch overlapping matches.
			word = midWordOneRE.ReplaceAllString(word, "${1}l${2}")
			word = midWordOneRE.ReplaceAllString(word, "${1}l${2}")
			words[wi] = word
		}
		paragraphs[pi] = strings.Join(words, " ")
	}
	return strings.Join(paragraphs, "\n\n")
}

// fixCommonWords replaces known whole-word misreads, keeping a leading
// capital when the original had one.
func fixCommonWords(text string) string {
	return wordCorrectionRE.ReplaceAllStringFunc(text, func(match string) string {
		right, ok := wordCorrections[strings.ToLower(match)]
		if !ok {
			return match
		}
		if r := []rune(match); len(r) > 0 && unicode.IsUpper(r[0]) {
			return strings.ToUpper(right[:1]) + right[1:]
		}
		return right
	})
}

// finalCleanup removes isolated noise characters (single stray glyphs that
// are not a, I, or digits), collapses repeated punctuation, and trims
// residual blank space.
func finalCleanup(text string) string {
	text = isolatedNoiseRE.ReplaceAllString(text, " ")
	text = repeatedPunctRE.ReplaceAllStringFunc(text, collapseRepeats)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = tripleNewlineRE.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// collapseRepeats reduces runs of the same character to one occurrence,
// leaving mixed sequences ("?!") alone.
func collapseRepeats(s string) string {
	var b strings.Builder
	var prev rune = -1
	for _, r := range s {
		if r != prev {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
