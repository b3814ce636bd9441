package claim

import (
	"errors"
	"strings"
)

// DefaultSeparator is used when a Codec is constructed with an empty
// separator. It matches the value used by existing stored claims.
const DefaultSeparator = ";"

// ErrMalformedValue reports a stored claim value that does not split into
// exactly a question text and a digest. Callers listing stored answers are
// expected to skip such legacy values rather than abort the listing.
var ErrMalformedValue = errors.New("malformed claim value")

// Codec encodes and decodes stored claim values for a fixed separator.
//
// Codec instances are immutable and safe for concurrent use.
type Codec struct {
	separator string
}

// NewCodec returns a Codec using the given separator, or [DefaultSeparator]
// when sep is empty.
func NewCodec(sep string) *Codec {
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Codec{separator: sep}
}

// Separator returns the separator this Codec splits and joins on.
func (c *Codec) Separator() string {
	return c.separator
}

// Encode packs a question text and an answer digest into a single stored
// claim value. The text is trimmed before packing.
//
// Encode does not reject a text containing the separator; that matches the
// behavior of previously stored values, and such values surface later as
// [ErrMalformedValue] on Decode.
func (c *Codec) Encode(questionText, answerDigest string) string {
	return strings.TrimSpace(questionText) + c.separator + answerDigest
}

// Decode splits a stored claim value into its question text and answer
// digest. It returns [ErrMalformedValue] if the value does not contain
// exactly one separator occurrence separating two parts.
func (c *Codec) Decode(value string) (questionText, answerDigest string, err error) {
	parts := strings.Split(value, c.separator)
	if len(parts) != 2 {
		return "", "", ErrMalformedValue
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// EncodeSetIndex joins the answered question-set identifiers into the single
// index claim value. Blank identifiers are dropped and the rest are trimmed.
func (c *Codec) EncodeSetIndex(setIDs []string) string {
	var b strings.Builder
	for _, id := range setIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(c.separator)
		}
		b.WriteString(id)
	}
	return b.String()
}

// DecodeSetIndex splits the index claim value into answered question-set
// identifiers, trimming each and dropping empty tokens.
func (c *Codec) DecodeSetIndex(value string) []string {
	if value == "" {
		return nil
	}
	var ids []string
	for _, tok := range strings.Split(value, c.separator) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			ids = append(ids, tok)
		}
	}
	return ids
}
