package fields

import (
	"bufio"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"

	"github.com/crimson-sun/mailsift/internal/engine/header"
	"github.com/crimson-sun/mailsift/internal/model"
)

// EnronHeaders is the header order of the Enron corpus, used when headers
// are projected into a single "Key: value | ..." string.
var EnronHeaders = []string{
	"Message-ID", "Date", "From", "To", "Subject",
	"Mime-Version", "Content-Type", "Content-Transfer-Encoding",
	"X-From", "X-To", "X-cc", "X-bcc", "X-Folder", "X-Origin", "X-FileName",
}

// Option configures a Selector.
type Option func(*Selector)

// WithDecodeWords decodes RFC 2047 encoded words ("=?utf-8?q?...?=") in
// selected values. Values with an unknown charset are kept as-is.
func WithDecodeWords() Option {
	return func(s *Selector) { s.decode = true }
}

// Selector pulls a fixed, ordered set of keys out of header blocks.
type Selector struct {
	keys   []string
	decode bool
}

// New creates a Selector for keys, in the order given.
func New(keys []string, opts ...Option) *Selector {
	s := &Selector{keys: append([]string(nil), keys...)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the selected keys in request order.
func (s *Selector) Keys() []string {
	return s.keys
}

// Select returns one Field per key. Each key is looked up independently
// over the whole block; the first matching line wins and a missing key
// yields "".
func (s *Selector) Select(headerText string) model.Fields {
	block := header.Parse(headerText)
	out := make(model.Fields, len(s.keys))
	for i, key := range s.keys {
		v, _ := block.Get(key)
		if s.decode && v != "" {
			v = decodeWords(key, v)
		}
		out[i] = model.Field{Key: key, Value: v}
	}
	return out
}

// Lookup returns the first value of key in headerText, or "".
func Lookup(headerText, key string) string {
	v, _ := header.Parse(headerText).Get(key)
	return v
}

// decodeWords runs v through go-message's header decoding, which handles
// encoded words in any registered charset.
func decodeWords(key, v string) string {
	if !strings.Contains(v, "=?") {
		return v
	}
	// Keys are only used as a carrier here; any token works.
	raw := "X-Value: " + v + "\r\n\r\n"
	th, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		return v
	}
	h := message.Header{Header: th}
	decoded, err := h.Text("X-Value")
	if err != nil {
		return v
	}
	return strings.TrimSpace(decoded)
}
