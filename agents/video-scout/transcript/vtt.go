package transcript

import (
	"bufio"
	"bytes"
	"html"
	"regexp"
	"strings"
)

// inline cue markup such as <c>, </c> and word timestamps <00:00:01.120>
var cueTag = regexp.MustCompile(`<[^>]*>`)

// vttText joins the cue text of a WebVTT file into one line. Repeated lines
// from rolling auto-generated captions are collapsed.
func vttText(data []byte) string {
	var raw []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw = append(raw, strings.TrimSpace(scanner.Text()))
	}

	var (
		lines    []string
		skipping bool
	)
	for i, line := range raw {
		if line == "" {
			skipping = false
			continue
		}
		if skipping {
			continue
		}

		switch {
		case i == 0 && strings.HasPrefix(line, "WEBVTT"):
			skipping = true
			continue
		case (i == 0 || raw[i-1] == "") && (line == "STYLE" || line == "REGION" || strings.HasPrefix(line, "NOTE")):
			skipping = true
			continue
		case strings.Contains(line, "-->"):
			continue
		case i+1 < len(raw) && strings.Contains(raw[i+1], "-->"):
			// cue identifier
			continue
		}

		text := strings.TrimSpace(html.UnescapeString(cueTag.ReplaceAllString(line, "")))
		if text == "" {
			continue
		}
		if len(lines) > 0 && lines[len(lines)-1] == text {
			continue
		}
		lines = append(lines, text)
	}

	return strings.Join(lines, " ")
}
