// Package sharelink turns the current map view into a URL that can be
// handed to another operator, and renders that URL as a QR code so the
// hand-off works across a room as well as across a chat.
package sharelink

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

// View captures the parts of the UI state worth sharing.
type View struct {
	Mode   string // "live" or "history"
	FromMs int64  // history window start, Unix ms
	ToMs   int64  // history window end, Unix ms
	Index  int    // playback position inside the timeline
}

// BuildURL renders the view as a link under base.  Zero-valued fields
// stay out of the query so live links remain short.
func BuildURL(base string, v View) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	if v.Mode != "" {
		q.Set("view", v.Mode)
	}
	if v.FromMs != 0 || v.ToMs != 0 {
		q.Set("from", strconv.FormatInt(v.FromMs, 10))
		q.Set("to", strconv.FormatInt(v.ToMs, 10))
	}
	if v.Index > 0 {
		q.Set("i", strconv.Itoa(v.Index))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EncodePNG writes the link as a QR PNG.  Medium error correction is
// plenty for a plain URL with no logo overlay eating modules.
func EncodePNG(w io.Writer, link string, sizePx int) error {
	if sizePx <= 0 {
		sizePx = 512
	}
	png, err := qrcode.Encode(link, qrcode.Medium, sizePx)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	if _, err := w.Write(png); err != nil {
		return fmt.Errorf("write qr png: %w", err)
	}
	return nil
}
