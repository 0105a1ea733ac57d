package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
)

var errMultipartClosed = errors.New("multipart body already encoded")

// Multipart builds a multipart/form-data body. Builder errors are kept and
// reported when the request is sent.
type Multipart struct {
	buf    bytes.Buffer
	w      *multipart.Writer
	err    error
	closed bool
}

func NewMultipart() *Multipart {
	m := &Multipart{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

func (m *Multipart) Field(name, value string) *Multipart {
	if m.err != nil || m.closed {
		return m
	}
	m.err = m.w.WriteField(name, value)
	return m
}

// JSONField writes v as a JSON-encoded text field.
func (m *Multipart) JSONField(name string, v any) *Multipart {
	if m.err != nil || m.closed {
		return m
	}
	b, err := json.Marshal(v)
	if err != nil {
		m.err = err
		return m
	}
	return m.Field(name, string(b))
}

func (m *Multipart) File(field, filename string, r io.Reader) *Multipart {
	if m.err != nil || m.closed {
		return m
	}
	part, err := m.w.CreateFormFile(field, filename)
	if err != nil {
		m.err = err
		return m
	}
	_, m.err = io.Copy(part, r)
	return m
}

// ContentType is the multipart content type including the boundary.
func (m *Multipart) ContentType() string {
	return m.w.FormDataContentType()
}

func (m *Multipart) encode() (io.Reader, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	if m.closed {
		return nil, "", errMultipartClosed
	}
	if err := m.w.Close(); err != nil {
		return nil, "", err
	}
	m.closed = true
	return bytes.NewReader(m.buf.Bytes()), m.ContentType(), nil
}
