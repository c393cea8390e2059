// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes finished reports to disk or any io.Writer and
// exports the illustration as an image file. The csl format writes only the
// cited sources, as a CSL-YAML bibliography.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/veriviz/pkg/types"
)

// Document is everything a rendered report shows.
type Document struct {
	RunID       string                `json:"run_id" yaml:"run_id"`
	Topic       string                `json:"topic" yaml:"topic"`
	Audience    types.Audience        `json:"audience" yaml:"audience"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Report      types.ReportResult    `json:"report" yaml:"report"`
	Image       *types.GeneratedImage `json:"image,omitempty" yaml:"-"`

	// ImagePath is the exported image file, relative to the report, if any.
	ImagePath string `json:"image_path,omitempty" yaml:"image_path,omitempty"`
}

// Writer outputs a document in one format.
type Writer interface {
	// Write outputs doc and returns the number of bytes written.
	Write(doc *Document) (int, error)
}

// New returns the writer for format.
func New(format types.OutputFormat, w io.Writer) (Writer, error) {
	switch format {
	case types.OutputMarkdown, "":
		return NewMarkdownWriter(w), nil
	case types.OutputJSON:
		return NewJSONWriter(w), nil
	case types.OutputYAML:
		return NewYAMLWriter(w), nil
	case types.OutputCSL:
		return NewCSLWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want markdown, json, yaml or csl)", format)
	}
}

// Extension returns the file extension for format, including the dot.
func Extension(format types.OutputFormat) string {
	switch format {
	case types.OutputJSON:
		return ".json"
	case types.OutputYAML:
		return ".yaml"
	case types.OutputCSL:
		return ".csl.yaml"
	default:
		return ".md"
	}
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// WriteImage decodes img into dir/base.<ext> and returns the file path.
// Unknown MIME types get a .bin extension.
func WriteImage(dir, base string, img types.GeneratedImage) (string, error) {
	data, err := img.Bytes()
	if err != nil {
		return "", err
	}
	ext, ok := imageExtensions[strings.ToLower(img.MIMEType)]
	if !ok {
		ext = ".bin"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, base+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return path, nil
}

// Save writes doc's image (if any) and the report into dir and returns the
// report path. Files are named after the topic slug and the time of
// generation so repeated runs do not overwrite each other.
func Save(dir string, format types.OutputFormat, doc *Document) (string, error) {
	base := Slug(doc.Topic) + "-" + doc.GeneratedAt.Format("20060102-150405")

	if doc.Image != nil && format != types.OutputCSL {
		imgPath, err := WriteImage(dir, base, *doc.Image)
		if err != nil {
			return "", err
		}
		doc.ImagePath = filepath.Base(imgPath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, base+Extension(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	w, err := New(format, f)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(doc); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// maxSlugLen bounds the topic part of generated file names.
const maxSlugLen = 60

// Slug converts a topic into a lowercase, hyphen-separated file name stem.
func Slug(topic string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(topic), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "report"
	}
	return s
}
