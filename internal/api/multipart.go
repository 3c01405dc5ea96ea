package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// FormFile is a file attached to a multipart field.
type FormFile struct {
	Field string
	Path  string
}

// Form is a multipart form: scalar fields plus one or more files.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// Upload sends the form with the given method and decodes the JSON answer into out.
func (c *Client) Upload(ctx context.Context, method, path string, form Form, out any, opts ...RequestOption) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range form.Fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("api: write field %s: %w", name, err)
		}
	}
	for _, f := range form.Files {
		if err := attach(w, f); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("api: close form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, method, path, &buf, w.FormDataContentType(), opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func attach(w *multipart.Writer, f FormFile) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("api: open %s: %w", f.Path, err)
	}
	defer file.Close()

	part, err := w.CreateFormFile(f.Field, filepath.Base(f.Path))
	if err != nil {
		return fmt.Errorf("api: create part %s: %w", f.Field, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("api: copy %s: %w", f.Path, err)
	}
	return nil
}
