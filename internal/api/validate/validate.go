// Package validate holds the request-shape rules for the public API.
// Anything deeper (lifecycle, schema of analysis payloads) is checked by
// the services.
package validate

import (
	"encoding/json"
	"fmt"
)

// Request limits. Files ride inline through the model API, which caps the
// whole request around 20MB, so uploads are held well under that.
const (
	MaxTextBytes = 32 << 10
	MaxFileBytes = 15 << 20
)

// allowedMIME lists the attachment types the classifier can consume.
var allowedMIME = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"application/pdf": true,
}

// Text bounds free-form capture text.
func Text(v string) error {
	if len(v) > MaxTextBytes {
		return fmt.Errorf("text exceeds %d bytes", MaxTextBytes)
	}
	return nil
}

// MIMEType checks an attachment's declared content type.
func MIMEType(v string) error {
	if v == "" {
		return fmt.Errorf("mimeType is required with file content")
	}
	if !allowedMIME[v] {
		return fmt.Errorf("unsupported mimeType %q", v)
	}
	return nil
}

// FileSize bounds a decoded attachment.
func FileSize(n int) error {
	if n == 0 {
		return fmt.Errorf("file content is empty")
	}
	if n > MaxFileBytes {
		return fmt.Errorf("file exceeds %d bytes", MaxFileBytes)
	}
	return nil
}

// IsJSONObject rejects payloads that parse but are not objects, such as a
// bare string or array.
func IsJSONObject(field string, raw json.RawMessage) error {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%s must be a JSON object", field)
	}
	return nil
}

// UpdateRecord validates the edit request shape.
func UpdateRecord(text *string, analysisData json.RawMessage) error {
	if text != nil {
		if err := Text(*text); err != nil {
			return err
		}
	}
	if len(analysisData) > 0 {
		return IsJSONObject("analysisData", analysisData)
	}
	return nil
}
