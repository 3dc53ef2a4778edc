package translator

import "regexp"

// TitleMarker prefixes the first input line when a chapter has a title. The
// model is instructed to echo it back in front of the translated title, so
// the title travels through the same call as the body.
const TitleMarker = "<<<TITLE>>>"

var titleMarkerPattern = regexp.MustCompile(`^<<<TITLE>>>[ \t]*([^\n]*)\n\n`)

// PrependTitle attaches the marker line for a non-empty title; otherwise the
// content passes through untouched.
func PrependTitle(content, title string) string {
	if title == "" {
		return content
	}
	return TitleMarker + " " + title + "\n\n" + content
}

// ExtractTitle splits model output back into title and body. Input without a
// leading marker line is returned unchanged with an empty title.
func ExtractTitle(output string) (title, content string) {
	m := titleMarkerPattern.FindStringSubmatchIndex(output)
	if m == nil {
		return "", output
	}
	return output[m[2]:m[3]], output[m[1]:]
}
