package resolver

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// Result is the best match for a query.
type Result struct {
	ID    string
	Title string
}

// YouTubeResolver maps free-text queries to video ids using the YouTube Data
// API v3.
type YouTubeResolver struct {
	svc             *youtube.Service
	languages       map[string]bool
	defaultLanguage string
}

// New creates a resolver authenticated with an API key. languages is the set
// of relevance-language hints accepted from clients; anything else falls back
// to defaultLanguage.
func New(ctx context.Context, apiKey string, languages []string, defaultLanguage string) (*YouTubeResolver, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %v", err)
	}

	supported := make(map[string]bool, len(languages))
	for _, lang := range languages {
		supported[strings.ToLower(lang)] = true
	}

	return &YouTubeResolver{
		svc:             svc,
		languages:       supported,
		defaultLanguage: defaultLanguage,
	}, nil
}

// Resolve returns the single best video match for query. A provider failure
// comes back as a ResolutionError; an empty result set as ErrNoResults.
func (r *YouTubeResolver) Resolve(ctx context.Context, query, languageHint string) (Result, error) {
	call := r.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(1).
		RelevanceLanguage(r.NormalizeLanguage(languageHint))

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return Result{}, &types.ResolutionError{Err: err}
	}
	if len(resp.Items) == 0 {
		return Result{}, types.ErrNoResults
	}

	item := resp.Items[0]
	return Result{
		ID:    item.Id.VideoId,
		Title: item.Snippet.Title,
	}, nil
}

// NormalizeLanguage maps a client language hint to a supported relevance
// language, falling back to the default for anything unknown or empty.
func (r *YouTubeResolver) NormalizeLanguage(hint string) string {
	lang := strings.ToLower(strings.TrimSpace(hint))
	if !r.languages[lang] {
		return r.defaultLanguage
	}
	return lang
}
