package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"finboard/internal/core"
)

// UploadURLPrefix is the public path attachments are served under.
const UploadURLPrefix = "/uploads/"

const maxUploadSize = 5 << 20

var allowedUploadExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".pdf": true,
}

// Uploader stores attachment files under one directory with random names.
type Uploader struct {
	dir string
}

// NewUploader creates dir if needed.
func NewUploader(dir string) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploader{dir: dir}, nil
}

// Dir returns the storage directory.
func (u *Uploader) Dir() string { return u.dir }

// SaveAll stores every file and returns their relative URLs. Files written
// before a failure are removed again.
func (u *Uploader) SaveAll(param string, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := u.save(param, fh)
		if err != nil {
			u.Remove(urls...)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (u *Uploader) save(param string, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedUploadExt[ext] {
		return "", core.ValidationErrors{{Param: param, Msg: "Only images and PDF files can be attached"}}
	}
	if fh.Size > maxUploadSize {
		return "", core.ValidationErrors{{Param: param, Msg: "Attachments must be at most 5 MB"}}
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(u.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadSize)); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return UploadURLPrefix + name, nil
}

// Remove deletes stored files by URL. URLs outside the upload prefix are
// ignored.
func (u *Uploader) Remove(urls ...string) {
	for _, url := range urls {
		name, ok := strings.CutPrefix(url, UploadURLPrefix)
		if !ok || name == "" || strings.ContainsAny(name, `/\`) {
			continue
		}
		_ = os.Remove(filepath.Join(u.dir, name))
	}
}
