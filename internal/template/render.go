// Package template renders outbound message bodies from small placeholder
// templates such as "{brand} 배송 완료: {url}". Rendering is best effort by
// contract: callers never receive an error from it.
package template

import "strings"

// Render substitutes {key} placeholders from ctx. Missing keys render as
// empty strings. Malformed placeholder syntax (an unterminated brace) fails
// closed: the original template is returned verbatim.
func Render(tmpl string, ctx map[string]string) string {
	if tmpl == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}

		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			// Unterminated placeholder: fail closed.
			return tmpl
		}

		b.WriteString(rest[:open])
		key := rest[open+1 : open+close]
		if strings.ContainsAny(key, "{ \t\n") {
			// Nested brace or whitespace inside a placeholder is malformed.
			return tmpl
		}
		b.WriteString(ctx[key])
		rest = rest[open+close+1:]
	}
}
