package archive

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// form builds a multipart/form-data body with fields in insertion order.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) *form {
	if f.err == nil {
		f.err = f.w.WriteField(name, value)
	}
	return f
}

func (f *form) date(d EventDate) *form {
	return f.field("eventYear", d.Year).field("eventMonth", d.Month).field("eventDay", d.Day)
}

func (f *form) file(field, filename, contentType string, data []byte) *form {
	if f.err != nil {
		return f
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return f
	}
	_, f.err = part.Write(data)
	return f
}

// finish closes the writer and returns the body and its content type.
func (f *form) finish() ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return f.buf.Bytes(), f.w.FormDataContentType(), nil
}

func urlEncoded(pairs ...string) []byte {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return []byte(v.Encode())
}
