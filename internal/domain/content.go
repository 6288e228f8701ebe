package domain

import (
	"encoding/base64"
	"errors"
)

// ErrNoImage is returned when a model response carries no inline image.
var ErrNoImage = errors.New("response contains no inline image")

// InlineData is a binary payload embedded in a model response.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// ContentPart is one part of a model response: text, inline bytes, or both empty.
type ContentPart struct {
	Text   string
	Inline *InlineData
}

// FirstImage returns the first part carrying inline image bytes.
func FirstImage(parts []ContentPart) (InlineData, error) {
	for _, p := range parts {
		if p.Inline != nil && len(p.Inline.Data) > 0 {
			return *p.Inline, nil
		}
	}
	return InlineData{}, ErrNoImage
}

// DataURI encodes d as a data: URI suitable for an <img> src.
func (d InlineData) DataURI() string {
	mime := d.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}
