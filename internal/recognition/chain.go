package recognition

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yourusername/tunepipe/internal/domain"
	"go.uber.org/zap"
)

const catalogSearchLimit = 5

// Normalizer prepares audio for fingerprinting. It never fails; a
// normalization problem yields the original path.
type Normalizer interface {
	NormalizeForFingerprint(ctx context.Context, path string) string
}

// Chain runs the cascading identification sequence: fingerprint match,
// secondary recognition API, catalog keyword search. Every step either
// produces an accepted outcome or hands off to the next; the chain
// always returns user-facing text, never an error.
type Chain struct {
	normalizer    Normalizer
	fingerprinter Fingerprinter
	catalog       CatalogLookup
	recognizer    Recognizer
	searcher      CatalogSearcher
	logger        *zap.Logger
}

// NewChain creates a new identification chain
func NewChain(
	normalizer Normalizer,
	fingerprinter Fingerprinter,
	catalog CatalogLookup,
	recognizer Recognizer,
	searcher CatalogSearcher,
	logger *zap.Logger,
) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		normalizer:    normalizer,
		fingerprinter: fingerprinter,
		catalog:       catalog,
		recognizer:    recognizer,
		searcher:      searcher,
		logger:        logger,
	}
}

// Identify runs the full chain against an audio file. The hint, when
// present, seeds the catalog-search fallback; otherwise the filename is
// used.
func (c *Chain) Identify(ctx context.Context, filePath, hint string) (text string) {
	// Truly unexpected faults degrade to a catalog suggestion instead of
	// propagating.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Identification crashed", zap.Any("panic", r))
			fallback := c.SearchCatalog(ctx, fallbackQuery(filePath, hint))
			text = "Identification failed, but here are some suggestions:\n\n" + fallback
		}
	}()

	outcome, seed := c.resolve(ctx, filePath)
	if outcome.Kind == domain.OutcomeNoMatch {
		if seed == "" {
			seed = fallbackQuery(filePath, hint)
		}
		return c.SearchCatalog(ctx, seed)
	}
	return renderOutcome(outcome)
}

// resolve walks the fingerprint and recognition stages to a tagged
// outcome. A NoMatch may carry a seed query distilled from a rejected
// low-confidence candidate.
func (c *Chain) resolve(ctx context.Context, filePath string) (domain.IdentificationOutcome, string) {
	c.logger.Info("Starting fingerprint scan", zap.String("file", filePath))
	prepared := c.normalizer.NormalizeForFingerprint(ctx, filePath)

	matches, err := c.fingerprinter.Match(ctx, prepared)
	if err != nil {
		c.logger.Warn("Fingerprint matching failed", zap.Error(err))
		matches = nil
	}

	var seed string
	if len(matches) > 0 {
		// Exactly one top candidate is used; no ensemble
		top := matches[0]
		c.logger.Info("Fingerprint candidate",
			zap.String("artist", top.Artist),
			zap.String("title", top.Title),
			zap.Float64("score", top.Score))

		if top.Score >= domain.FingerprintConfidenceGate {
			return c.acceptFingerprint(ctx, top), ""
		}
		c.logger.Info("Low fingerprint confidence, trying recognition API",
			zap.Float64("score", top.Score))
		seed = top.Artist + " " + top.Title
	} else {
		c.logger.Info("No fingerprint candidates, trying recognition API")
	}

	if match := c.tryRecognizer(ctx, filePath); match != nil {
		return domain.IdentificationOutcome{
			Kind:   domain.OutcomeRecognitionAPI,
			Artist: match.Artist,
			Title:  match.Title,
			Link:   match.Link,
		}, ""
	}

	return domain.IdentificationOutcome{Kind: domain.OutcomeNoMatch}, seed
}

// acceptFingerprint resolves richer metadata for an accepted match,
// degrading to the raw fingerprint artist/title when the lookup fails.
func (c *Chain) acceptFingerprint(ctx context.Context, match domain.FingerprintMatch) domain.IdentificationOutcome {
	link := "https://musicbrainz.org/recording/" + match.RecordingID

	if info, err := c.catalog.Recording(ctx, match.RecordingID); err == nil {
		if info.Artist != "" {
			match.Artist = info.Artist
		}
		if info.Title != "" {
			match.Title = info.Title
		}
		link = info.Link
	} else {
		c.logger.Warn("Catalog lookup failed, using fingerprint metadata", zap.Error(err))
	}

	return domain.IdentificationOutcome{
		Kind:        domain.OutcomeFingerprint,
		Fingerprint: &match,
		Link:        link,
	}
}

// tryRecognizer queries the secondary recognition API. A nil match means
// the next fallback should run.
func (c *Chain) tryRecognizer(ctx context.Context, filePath string) *RecognitionMatch {
	match, err := c.recognizer.Recognize(ctx, filePath)
	if err != nil {
		c.logger.Warn("Recognition API failed", zap.Error(err))
		return nil
	}
	if match == nil {
		c.logger.Info("Recognition API returned no match")
	}
	return match
}

// SearchCatalog is the last fallback: a keyword search whose answer is
// always user-displayable, even empty-handed.
func (c *Chain) SearchCatalog(ctx context.Context, query string) string {
	if !c.searcher.Configured() {
		return "Spotify search is not configured."
	}

	query = CleanQuery(query)
	if query == "" {
		return "No search query available."
	}

	tracks, err := c.searcher.Search(ctx, query, catalogSearchLimit)
	if err != nil {
		c.logger.Warn("Catalog search failed", zap.Error(err))
		return fmt.Sprintf("Catalog search error: %v", err)
	}
	if len(tracks) == 0 {
		return "No matches found on Spotify."
	}

	return renderOutcome(domain.IdentificationOutcome{
		Kind:   domain.OutcomeCatalog,
		Tracks: tracks,
	})
}

// renderOutcome formats a tagged outcome as user-facing text.
func renderOutcome(outcome domain.IdentificationOutcome) string {
	switch outcome.Kind {
	case domain.OutcomeFingerprint:
		fp := outcome.Fingerprint
		return fmt.Sprintf("%s — %s\nView on MusicBrainz: %s", fp.Artist, fp.Title, outcome.Link)
	case domain.OutcomeRecognitionAPI:
		if outcome.Link != "" {
			return fmt.Sprintf("%s — %s\nListen on Spotify: %s", outcome.Artist, outcome.Title, outcome.Link)
		}
		return fmt.Sprintf("%s — %s", outcome.Artist, outcome.Title)
	case domain.OutcomeCatalog:
		var sb strings.Builder
		sb.WriteString("Closest matches on Spotify:\n\n")
		for _, track := range outcome.Tracks {
			fmt.Fprintf(&sb, "%s — %s\n%s\n\n", track.Artist, track.Title, track.Link)
		}
		return strings.TrimRight(sb.String(), "\n")
	default:
		return "No matches found on Spotify."
	}
}

// fallbackQuery prefers the caller-supplied hint over the filename
func fallbackQuery(filePath, hint string) string {
	if hint != "" {
		return hint
	}
	return filepath.Base(filePath)
}
