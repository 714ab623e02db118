package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/pageza/recipebook/internal/types"
)

// encodeRecipeForm builds the multipart body for a recipe submission.
// Ingredient and step lists travel as JSON arrays in plain fields. With
// partial set, zero-valued fields are left out.
func encodeRecipeForm(input types.RecipeInput, partial bool) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct {
		name  string
		value string
		zero  bool
	}{
		{"title", input.Title, input.Title == ""},
		{"description", input.Description, input.Description == ""},
		{"cooking_time", strconv.Itoa(input.CookingTime), input.CookingTime == 0},
		{"servings", strconv.Itoa(input.Servings), input.Servings == 0},
		{"category", input.Category, input.Category == ""},
	}
	for _, f := range fields {
		if partial && f.zero {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if !partial || input.Ingredients != nil {
		if err := writeJSONField(w, "ingredients", nonNil(input.Ingredients)); err != nil {
			return nil, "", err
		}
	}
	if !partial || input.Steps != nil {
		if err := writeJSONField(w, "steps", nonNil(input.Steps)); err != nil {
			return nil, "", err
		}
	}

	if img := input.Image; img != nil && img.Data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Name))
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, img.Data); err != nil {
			return nil, "", fmt.Errorf("failed to read image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeJSONField(w *multipart.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteField(name, string(data))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
