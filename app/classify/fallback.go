package classify

import (
	"context"
	"log/slog"
)

// Fallback runs Primary and, when it fails, answers with Secondary for
// that entry only.
type Fallback struct {
	Primary   Classifier
	Secondary Classifier
}

func NewFallback(primary, secondary Classifier) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (f *Fallback) Name() string {
	return f.Primary.Name()
}

func (f *Fallback) Classify(ctx context.Context, title, summary string) (Result, error) {
	result, err := f.Primary.Classify(ctx, title, summary)
	if err == nil {
		return result, nil
	}

	slog.Warn("Classifier failed, falling back",
		"classifier", f.Primary.Name(),
		"fallback", f.Secondary.Name(),
		"title", title,
		"error", err)

	return f.Secondary.Classify(ctx, title, summary)
}
