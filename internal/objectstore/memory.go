package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Memory is an in-process Store for tests and local runs without MinIO.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject
	baseURL string
}

// NewMemory returns an empty store. Presigned URLs are rooted at baseURL.
func NewMemory(baseURL string) *Memory {
	return &Memory{objects: make(map[string]memObject), baseURL: strings.TrimRight(baseURL, "/")}
}

func memKey(bucket, key string) string { return bucket + "/" + key }

func (m *Memory) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", bucket, key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = memObject{data: data, contentType: contentType, modified: time.Now().UTC()}
	return nil
}

func (m *Memory) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[memKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(bucket, key)
	if _, ok := m.objects[k]; !ok {
		return fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}
	delete(m.objects, k)
	return nil
}

func (m *Memory) List(_ context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ObjectInfo{}
	full := memKey(bucket, prefix)
	for k, obj := range m.objects {
		if !strings.HasPrefix(k, full) {
			continue
		}
		out = append(out, ObjectInfo{
			Key:          strings.TrimPrefix(k, bucket+"/"),
			Size:         int64(len(obj.data)),
			ContentType:  obj.contentType,
			LastModified: obj.modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) PresignedGetURL(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[memKey(bucket, key)]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}
	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", int(expiry.Seconds())))
	return m.baseURL + "/" + bucket + "/" + key + "?" + q.Encode(), nil
}
