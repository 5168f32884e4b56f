// Package servicetest holds doubles for the external collaborators of the
// service package: the mail transport, the blob store and the featured cache.
package servicetest

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/MohitSaini10/dan-aliph/service"
)

var ErrSendFailed = errors.New("smtp: connection refused")

// Notifier records every message. When Fail is set each send returns
// ErrSendFailed after being recorded.
type Notifier struct {
	mu   sync.Mutex
	Fail bool
	sent []service.Message
}

func (n *Notifier) Send(_ context.Context, msg service.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if n.Fail {
		return ErrSendFailed
	}
	return nil
}

func (n *Notifier) Sent() []service.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]service.Message(nil), n.sent...)
}

// To returns the messages addressed to email.
func (n *Notifier) To(email string) []service.Message {
	var out []service.Message
	for _, m := range n.Sent() {
		if m.To == email {
			out = append(out, m)
		}
	}
	return out
}

// BlobStore keeps objects in memory under https://cdn.test/<key>.
type BlobStore struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Deleted   []string
	DeleteErr error
}

const BaseURL = "https://cdn.test"

func NewBlobStore() *BlobStore {
	return &BlobStore{Objects: map[string][]byte{}}
}

func (b *BlobStore) Upload(_ context.Context, prefix, filename string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	key := service.NewBlobKey(prefix, filepath.Ext(filename))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Objects[key] = data
	return key, nil
}

func (b *BlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deleted = append(b.Deleted, key)
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	delete(b.Objects, key)
	return nil
}

func (b *BlobStore) PresignedPutURL(_ context.Context, key, _ string, expiry time.Duration) (string, error) {
	return BaseURL + "/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

func (b *BlobStore) PublicURL(key string) string {
	return BaseURL + "/" + key
}

func (b *BlobStore) KeyFromURL(rawURL string) string {
	return service.KeyFromURL(BaseURL, rawURL)
}

func (b *BlobStore) DeletedKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Deleted...)
}

type pageKey struct {
	gen  int64
	page int
}

// FeaturedCache keeps featured pages in memory with the same generation
// rules as the redis cache. BeforeSet, when set, runs once before the next
// Set stores its page.
type FeaturedCache struct {
	mu        sync.Mutex
	gen       int64
	pages     map[pageKey]*service.FeaturedPage
	Hits      int
	BeforeSet func()
}

func NewFeaturedCache() *FeaturedCache {
	return &FeaturedCache{pages: map[pageKey]*service.FeaturedPage{}}
}

func (c *FeaturedCache) Get(_ context.Context, page int) (*service.FeaturedPage, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pages[pageKey{c.gen, page}]
	if p != nil {
		c.Hits++
	}
	return p, c.gen, nil
}

func (c *FeaturedCache) Set(_ context.Context, gen int64, page int, p *service.FeaturedPage) error {
	c.mu.Lock()
	hook := c.BeforeSet
	c.BeforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[pageKey{gen, page}] = p
	return nil
}

func (c *FeaturedCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return nil
}
