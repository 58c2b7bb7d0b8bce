package markup

import (
	"bytes"
	"strings"
)

const frontMatterFence = "---"

// SplitFrontMatter separates a leading "---" fenced block from the markup
// that follows it. The returned body keeps one newline per front matter
// line so positions reported by Parse still match the original file.
// Sources without front matter are returned unchanged with a nil header.
func SplitFrontMatter(src []byte) (header, body []byte) {
	rest := bytes.TrimPrefix(src, []byte("\uFEFF"))
	firstLine, after, ok := bytes.Cut(rest, []byte("\n"))
	if !ok || strings.TrimSpace(string(firstLine)) != frontMatterFence {
		return nil, src
	}

	lines := 1
	offset := 0
	for {
		line, next, found := bytes.Cut(after[offset:], []byte("\n"))
		lines++
		if strings.TrimSpace(string(line)) == frontMatterFence {
			header = after[:offset]
			var end []byte
			if found {
				end = next
			}
			pad := bytes.Repeat([]byte("\n"), lines)
			if !found {
				pad = pad[:lines-1]
			}
			return header, append(pad, end...)
		}
		if !found {
			return nil, src
		}
		offset += len(line) + 1
	}
}
