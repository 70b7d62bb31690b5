package crawler

import (
	"bytes"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// metaCharsetRe matches both <meta charset="..."> and the http-equiv
// content-type form. Only the head of the document is scanned.
var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-zA-Z0-9._-]+)`)

// metaSniffLimit bounds how far into the body the meta scan looks.
const metaSniffLimit = 1024

// fallbackCharsets are tried in order when neither headers, markup,
// nor statistical detection identify the encoding. The list covers the
// encodings international university sites still serve.
var fallbackCharsets = []string{"utf-8", "iso-8859-1", "windows-1252", "shift_jis", "gb18030"}

// DecodeBody converts a fetched body to a UTF-8 string. The charset is
// taken from the Content-Type header when present, then from a meta
// tag in the document head, then from statistical detection, then from
// a fallback list. A body that defeats every step is force-decoded as
// UTF-8 with invalid sequences replaced, so the caller always gets
// usable text.
func DecodeBody(body []byte, contentType string) string {
	if name := headerCharset(contentType); name != "" {
		if s, ok := decodeAs(body, name); ok {
			return s
		}
	}

	head := body
	if len(head) > metaSniffLimit {
		head = head[:metaSniffLimit]
	}
	if m := metaCharsetRe.FindSubmatch(head); m != nil {
		if s, ok := decodeAs(body, string(m[1])); ok {
			return s
		}
	}

	if result, err := chardet.NewHtmlDetector().DetectBest(body); err == nil {
		if s, ok := decodeAs(body, result.Charset); ok {
			return s
		}
	}

	for _, name := range fallbackCharsets {
		if s, ok := decodeAs(body, name); ok {
			return s
		}
	}

	return string(bytes.ToValidUTF8(body, []byte("�")))
}

// headerCharset extracts the charset parameter from a Content-Type
// header, or "".
func headerCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// decodeAs decodes body with the named charset. It reports failure for
// unknown charsets, transform errors, and output that still is not
// valid UTF-8, so the caller can try the next source.
func decodeAs(body []byte, name string) (string, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "", false
	}

	// The UTF-8 decoder substitutes replacement runes instead of
	// erroring, which would mask a wrong charset guess. Require strict
	// validity so the next source in the chain gets its turn.
	if name == "utf-8" || name == "utf8" {
		if utf8.Valid(body) {
			return string(body), true
		}
		return "", false
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", false
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}
