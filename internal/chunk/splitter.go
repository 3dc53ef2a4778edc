package chunk

import (
	"strings"
	"unicode/utf8"
)

var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '…': true,
}

var sentenceClosers = map[rune]bool{
	'"': true, '\'': true, ')': true,
	'”': true, '’': true, '」': true, '』': true, '）': true,
}

// Split breaks text into chunks of at most budget characters. Units are
// paragraphs (blank-line boundaries); a paragraph over budget is split at
// sentence boundaries; a single sentence over budget is hard-cut. Units are
// exact substrings of the input in order, so concatenating the returned
// chunks reproduces the input byte for byte, and the same input and budget
// always produce the same chunks.
func Split(text string, budget int) []string {
	if text == "" {
		return nil
	}
	if budget < 1 {
		budget = 1
	}

	units := make([]string, 0)
	for _, para := range splitParagraphs(text) {
		if utf8.RuneCountInString(para) <= budget {
			units = append(units, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if utf8.RuneCountInString(sentence) <= budget {
				units = append(units, sentence)
				continue
			}
			units = append(units, hardCut(sentence, budget)...)
		}
	}

	// Greedily pack consecutive units until the next one would overflow.
	chunks := make([]string, 0)
	var current strings.Builder
	currentLen := 0
	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if currentLen > 0 && currentLen+unitLen > budget {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(unit)
		currentLen += unitLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitParagraphs cuts after every blank-line run, keeping the separator
// attached to the preceding paragraph.
func splitParagraphs(text string) []string {
	units := make([]string, 0)
	start := 0
	i := 0
	for i < len(text) {
		if text[i] != '\n' {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && text[j] == '\n' {
			j++
		}
		if j-i >= 2 {
			units = append(units, text[start:j])
			start = j
		}
		i = j
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

// splitSentences cuts after script-aware terminators, absorbing any closing
// quotes or brackets that directly follow them.
func splitSentences(text string) []string {
	units := make([]string, 0)
	runes := []rune(text)
	segStart := 0
	for i := 0; i < len(runes); i++ {
		if !sentenceTerminators[runes[i]] {
			continue
		}
		for i+1 < len(runes) && (sentenceTerminators[runes[i+1]] || sentenceClosers[runes[i+1]]) {
			i++
		}
		units = append(units, string(runes[segStart:i+1]))
		segStart = i + 1
	}
	if segStart < len(runes) {
		units = append(units, string(runes[segStart:]))
	}
	return units
}

// hardCut slices a single oversize sentence into budget-sized pieces by
// character count.
func hardCut(text string, budget int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, len(runes)/budget+1)
	for start := 0; start < len(runes); start += budget {
		end := start + budget
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
