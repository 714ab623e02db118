// Package media loads recipe images from local files or S3.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"github.com/pageza/recipebook/internal/types"
)

// MaxImageSize bounds images read into memory
const MaxImageSize = 10 << 20

var (
	ErrNotImage  = errors.New("file is not an image")
	ErrTooLarge  = errors.New("image exceeds the 10 MB limit")
	ErrNoS3      = errors.New("s3 references need an S3 client")
	ErrBadS3Path = errors.New("s3 reference must look like s3://bucket/key")
)

// ObjectGetter is the part of the S3 API used to fetch images
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader opens image references
type Loader struct {
	s3 ObjectGetter
}

// NewLoader creates a Loader. s3 may be nil when only local files are used.
func NewLoader(s3 ObjectGetter) *Loader {
	return &Loader{s3: s3}
}

// Open reads ref, a local path or an s3://bucket/key reference, and
// returns it as an upload-ready image
func (l *Loader) Open(ctx context.Context, ref string) (*types.ImageFile, error) {
	if strings.HasPrefix(ref, "s3://") {
		return l.openS3(ctx, ref)
	}
	return openLocal(ref)
}

func openLocal(name string) (*types.ImageFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return sniff(filepath.Base(name), f)
}

func (l *Loader) openS3(ctx context.Context, ref string) (*types.ImageFile, error) {
	if l.s3 == nil {
		return nil, ErrNoS3
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return nil, ErrBadS3Path
	}
	key := strings.TrimPrefix(u.Path, "/")

	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch s3 object: %w", err)
	}
	defer out.Body.Close()
	return sniff(path.Base(key), out.Body)
}

func sniff(name string, r io.Reader) (*types.ImageFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return &types.ImageFile{
		Name:        name,
		ContentType: mt.String(),
		Data:        bytes.NewReader(data),
	}, nil
}
