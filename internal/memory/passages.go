package memory

import (
	"strings"
	"unicode/utf8"
)

// splitPassages breaks a fact into passages of at most size bytes. Headings
// and blank lines start new paragraphs; consecutive short paragraphs are
// merged, and paragraphs over size are split between words.
func splitPassages(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" || size <= 0 {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var out []string
	var accum string
	flush := func() {
		if accum != "" {
			out = append(out, accum)
			accum = ""
		}
	}
	for _, para := range paragraphs(text) {
		if len(para) > size {
			flush()
			out = append(out, splitWords(para, size)...)
			continue
		}
		if accum == "" {
			accum = para
		} else if len(accum)+2+len(para) <= size {
			accum += "\n\n" + para
		} else {
			flush()
			accum = para
		}
	}
	flush()
	return out
}

func paragraphs(text string) []string {
	var paras []string
	var current []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(current, "\n")); p != "" {
			paras = append(paras, p)
		}
		current = nil
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
			continue
		case strings.HasPrefix(trimmed, "#"):
			flush()
		}
		current = append(current, line)
	}
	flush()
	return paras
}

func splitWords(text string, size int) []string {
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(text) {
		for len(w) > size {
			if b.Len() > 0 {
				out = append(out, b.String())
				b.Reset()
			}
			cut := size
			for cut > 0 && !utf8.RuneStart(w[cut]) {
				cut--
			}
			if cut == 0 {
				cut = size
			}
			out = append(out, w[:cut])
			w = w[cut:]
		}
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
