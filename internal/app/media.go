package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

const (
	DefaultMediaTTL      = 5 * time.Minute
	DefaultMediaMaxBytes = 16 << 20
)

// MediaObject is proxied question media.
type MediaObject struct {
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Media serves question media by question id so the stored URL never has to
// reach participants.
type Media struct {
	questions QuestionStore
	resolver  MediaResolver
	cache     MediaCache
	client    *http.Client
	ttl       time.Duration
	maxBytes  int64
	sf        singleflight.Group
	log       *logger.Logger
}

func NewMedia(questions QuestionStore, resolver MediaResolver, cache MediaCache, client *http.Client, ttl time.Duration, maxBytes int64, log *logger.Logger) *Media {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultMediaTTL
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMediaMaxBytes
	}
	return &Media{
		questions: questions,
		resolver:  resolver,
		cache:     cache,
		client:    client,
		ttl:       ttl,
		maxBytes:  maxBytes,
		log:       logger.OrNop(log).With("component", "media"),
	}
}

// Fetch returns the media bytes behind questionID.
func (m *Media) Fetch(ctx context.Context, questionID string) (MediaObject, error) {
	if m.cache != nil {
		if obj, ok := m.cache.Get(ctx, questionID); ok {
			return obj, nil
		}
	}

	result, err, _ := m.sf.Do(questionID, func() (interface{}, error) {
		q, err := m.questions.GetQuestion(ctx, questionID)
		if err != nil {
			return MediaObject{}, err
		}
		if strings.TrimSpace(q.Content) == "" {
			return MediaObject{}, fmt.Errorf("question %s has no media: %w", questionID, domain.ErrNotFound)
		}
		target, err := m.resolver.Resolve(ctx, q.Content)
		if err != nil {
			return MediaObject{}, fmt.Errorf("resolve media: %w", err)
		}
		obj, err := m.download(ctx, target)
		if err != nil {
			return MediaObject{}, err
		}
		if m.cache != nil {
			m.cache.Set(ctx, questionID, obj, m.ttl)
		}
		return obj, nil
	})
	if err != nil {
		return MediaObject{}, err
	}
	return result.(MediaObject), nil
}

func (m *Media) download(ctx context.Context, target string) (MediaObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return MediaObject{}, fmt.Errorf("build media request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return MediaObject{}, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return MediaObject{}, fmt.Errorf("fetch media: upstream status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return MediaObject{}, fmt.Errorf("read media: %w", err)
	}
	if int64(len(body)) > m.maxBytes {
		return MediaObject{}, fmt.Errorf("media exceeds %d bytes: %w", m.maxBytes, domain.ErrInvalidInput)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	m.log.Debug("media fetched", "bytes", len(body), "content_type", contentType)
	return MediaObject{ContentType: contentType, Body: body}, nil
}
