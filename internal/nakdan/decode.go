package nakdan

import (
	"strings"

	"github.com/tidwall/gjson"
)

// decodeResponse flattens the service's token array into diacritized text.
//
// Each token is either a separator (truthy "sep" flag; its "word" field is
// emitted verbatim) or a word carrying candidate spellings in "options".
// Words emit their first candidate with the internal "|" markers stripped,
// falling back to the undiacritized "word" field when no candidates were
// returned. Token order is preserved and nothing is filtered.
func decodeResponse(body []byte) string {
	tokens := gjson.ParseBytes(body).Array()
	if len(tokens) == 0 {
		return ""
	}

	var b strings.Builder
	for _, tok := range tokens {
		if tok.Get("sep").Bool() {
			b.WriteString(tok.Get("word").String())
			continue
		}
		options := tok.Get("options").Array()
		if len(options) > 0 {
			b.WriteString(strings.ReplaceAll(options[0].String(), "|", ""))
		} else {
			b.WriteString(tok.Get("word").String())
		}
	}
	return b.String()
}
