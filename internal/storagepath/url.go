package storagepath

import (
	"fmt"
	"strings"
)

type urlKind string

const (
	urlPublic   urlKind = "public"
	urlDownload urlKind = "download"
)

// FullStoragePath returns "{bucket}/{path}". An empty bucket selects the default bucket.
func (u *Util) FullStoragePath(path, bucket string) (string, error) {
	b, err := u.resolve(path, bucket)
	if err != nil {
		return "", err
	}
	return b + "/" + strings.TrimLeft(path, "/"), nil
}

// PublicURL returns the unauthenticated URL for path.
func (u *Util) PublicURL(path, bucket string) (string, error) {
	return u.objectURL(urlPublic, path, bucket)
}

// DownloadURL returns the URL that serves path as an attachment.
func (u *Util) DownloadURL(path, bucket string) (string, error) {
	return u.objectURL(urlDownload, path, bucket)
}

func (u *Util) objectURL(kind urlKind, path, bucket string) (string, error) {
	b, err := u.resolve(path, bucket)
	if err != nil {
		return "", err
	}
	if u.cfg.BaseURL == "" {
		err := newError(CodeMissingBaseURL, "base URL is not configured")
		u.logger.Error("url construction failed", err.LogAttrs()...)
		return "", err
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s/%s", u.cfg.BaseURL, kind, b, strings.TrimLeft(path, "/")), nil
}

func (u *Util) resolve(path, bucket string) (string, error) {
	if path == "" {
		return "", newError(CodeInvalidPath, "path is empty")
	}
	if bucket == "" {
		return u.cfg.DefaultBucket, nil
	}
	if !validBucketName(bucket) {
		return "", newError(CodeInvalidBucket, "bucket name is invalid", "bucket", bucket)
	}
	return bucket, nil
}
