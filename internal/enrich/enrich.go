// Package enrich annotates topic records with a short summary and a
// challenge level produced by a language model, caching every answer.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	ChallengePractice = "practice"
	ChallengeExpert   = "expert"
)

// Annotation is the model output for one record.
type Annotation struct {
	TLDR      string `json:"tldr"`
	Challenge string `json:"challenge"`
}

// Model turns a prompt into a JSON answer.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tune request pacing. Zero fields take defaults.
type Options struct {
	MinInterval time.Duration // gap between two model requests (0 = 4s, <0 = none)
	Retries     int           // attempts per record (0 = 3)
	Backoff     time.Duration // base retry delay, doubled per attempt (0 = 1s)

	// Retryable classifies model errors. nil retries only rate limiting
	// and server errors reported by the Gemini API.
	Retryable func(error) bool
}

// Enricher serves annotations from the cache, asking the model on a miss.
type Enricher struct {
	model Model
	cache *Cache
	opts  Options

	mu   sync.Mutex
	last time.Time
}

// New returns an Enricher. cache may be nil to disable caching.
func New(model Model, cache *Cache, opts Options) *Enricher {
	if opts.MinInterval == 0 {
		opts.MinInterval = 4 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Retryable == nil {
		opts.Retryable = transient
	}
	return &Enricher{model: model, cache: cache, opts: opts}
}

// Enrich returns the summary and challenge level of one record.
func (e *Enricher) Enrich(ctx context.Context, category, subcategory, topic, description string) (string, string, error) {
	hash := Hash(category, subcategory, topic, description)

	if e.cache != nil {
		a, ok, err := e.cache.Get(ctx, hash)
		if err != nil {
			return "", "", err
		}
		if ok {
			slog.Debug("enrich: cache hit", "topic", topic)
			return a.TLDR, a.Challenge, nil
		}
	}

	slog.Info("enrich: generating", "topic", topic)
	a, err := e.generate(ctx, BuildPrompt(category, subcategory, topic, description))
	if err != nil {
		return "", "", fmt.Errorf("enrich %q: %w", topic, err)
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, hash, a); err != nil {
			return "", "", err
		}
	}
	return a.TLDR, a.Challenge, nil
}

func (e *Enricher) generate(ctx context.Context, prompt string) (Annotation, error) {
	var lastErr error
	for attempt := range e.opts.Retries {
		if err := e.throttle(ctx); err != nil {
			return Annotation{}, err
		}

		text, err := e.model.Generate(ctx, prompt)
		if err == nil {
			return decode(text)
		}
		lastErr = err
		if ctx.Err() != nil || !e.opts.Retryable(err) {
			return Annotation{}, err
		}

		backoff := e.opts.Backoff<<attempt + time.Duration(rand.Int64N(int64(e.opts.Backoff)))
		slog.Warn("enrich: transient model error, retrying",
			"attempt", attempt+1, "of", e.opts.Retries, "backoff", backoff, "error", err)
		if err := sleep(ctx, backoff); err != nil {
			return Annotation{}, err
		}
	}
	return Annotation{}, fmt.Errorf("giving up after %d attempts: %w", e.opts.Retries, lastErr)
}

// throttle keeps at least MinInterval between two model requests.
func (e *Enricher) throttle(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.last.IsZero() {
		if wait := e.opts.MinInterval - time.Since(e.last); wait > 0 {
			slog.Debug("enrich: rate limiting", "sleep", wait)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	e.last = time.Now()
	return nil
}

func decode(text string) (Annotation, error) {
	var a Annotation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &a); err != nil {
		return Annotation{}, fmt.Errorf("decode model response: %w", err)
	}
	if a.TLDR == "" || a.Challenge == "" {
		return Annotation{}, fmt.Errorf("decode model response: missing tldr or challenge in %q", text)
	}
	a.TLDR = strings.TrimRight(strings.TrimSpace(a.TLDR), ".!?")
	if a.Challenge != ChallengePractice && a.Challenge != ChallengeExpert {
		slog.Warn("enrich: invalid challenge level, defaulting", "got", a.Challenge, "default", ChallengePractice)
		a.Challenge = ChallengePractice
	}
	return a, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
