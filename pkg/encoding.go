package versionscan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

const sniffLen = 8 << 10

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding is a text encoding a file was read with.
type Encoding struct {
	Name  string
	codec encoding.Encoding // nil means UTF-8
	bom   bool
}

// UTF8 is the encoding of plain UTF-8 files.
var UTF8 = Encoding{Name: "utf-8"}

// Decode converts raw file content to a string. A UTF-8 byte order mark is dropped.
func (e Encoding) Decode(b []byte) (string, error) {
	if e.codec == nil {
		return string(bytes.TrimPrefix(b, utf8BOM)), nil
	}
	out, err := e.codec.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", e.Name, err)
	}
	return string(out), nil
}

// Encode converts a string back to the file's encoding, restoring a byte order mark if one was read.
func (e Encoding) Encode(s string) ([]byte, error) {
	if e.codec == nil {
		if e.bom {
			return append(append([]byte{}, utf8BOM...), s...), nil
		}
		return []byte(s), nil
	}
	out, err := e.codec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", e.Name, err)
	}
	return out, nil
}

// EncodingResolver decides how a file is decoded. ok=false means the file should be skipped.
type EncodingResolver interface {
	Detect(path string) (enc Encoding, ok bool)
}

type sniffResult struct {
	enc Encoding
	ok  bool
}

// CharsetResolver sniffs file content and remembers its answer per path.
type CharsetResolver struct {
	cache *lru.Cache[string, sniffResult]
}

// NewCharsetResolver returns a resolver that memoizes up to size paths.
func NewCharsetResolver(size int) *CharsetResolver {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, sniffResult](size)
	if err != nil {
		panic(err)
	}
	return &CharsetResolver{cache: cache}
}

// Detect reads up to 8 KiB of path. Content with NUL bytes is treated as binary.
func (c *CharsetResolver) Detect(path string) (Encoding, bool) {
	if d, ok := c.cache.Get(path); ok {
		return d.enc, d.ok
	}
	d := sniff(path)
	c.cache.Add(path, d)
	return d.enc, d.ok
}

func sniff(path string) sniffResult {
	f, err := os.Open(path)
	if err != nil {
		return sniffResult{}
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return sniffResult{}
	}
	sample := buf[:n]
	truncated := n == sniffLen

	if bytes.IndexByte(sample, 0) >= 0 {
		return sniffResult{}
	}
	if bytes.HasPrefix(sample, utf8BOM) {
		return sniffResult{enc: Encoding{Name: "utf-8", bom: true}, ok: true}
	}
	if validUTF8Prefix(sample, truncated) {
		return sniffResult{enc: UTF8, ok: true}
	}
	codec, name, _ := charset.DetermineEncoding(sample, "text/plain")
	if codec == nil || name == "utf-8" {
		return sniffResult{}
	}
	return sniffResult{enc: Encoding{Name: name, codec: codec}, ok: true}
}

// validUTF8Prefix tolerates a rune cut off at the end of a truncated sample.
func validUTF8Prefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for cut := 1; cut < utf8.UTFMax && cut < len(b); cut++ {
		if utf8.Valid(b[:len(b)-cut]) {
			return true
		}
	}
	return false
}
