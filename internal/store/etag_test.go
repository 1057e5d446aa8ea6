package store

import (
	"testing"

	"newsdesk/api/internal/article"
)

func TestComputeETagIsDeterministic(t *testing.T) {
	art := article.Article{
		ID:       "a1",
		Type:     "text",
		Headline: "Flood warning issued",
		Subject:  []article.Subject{{QCode: "01000000", Name: "arts"}},
	}
	first, err := ComputeETag(art)
	if err != nil {
		t.Fatalf("ComputeETag failed: %v", err)
	}
	second, err := ComputeETag(art)
	if err != nil {
		t.Fatalf("ComputeETag failed: %v", err)
	}
	if first != second {
		t.Errorf("etags differ: %s vs %s", first, second)
	}
	if first == "" {
		t.Error("empty etag")
	}
}

func TestComputeETagIgnoresCurrentTag(t *testing.T) {
	art := article.Article{ID: "a1", Headline: "Flood warning issued"}
	bare, err := ComputeETag(art)
	if err != nil {
		t.Fatalf("ComputeETag failed: %v", err)
	}
	art.ETag = "previous-save"
	tagged, err := ComputeETag(art)
	if err != nil {
		t.Fatalf("ComputeETag failed: %v", err)
	}
	if bare != tagged {
		t.Error("stored tag leaked into the etag input")
	}
}

func TestComputeETagChangesWithContent(t *testing.T) {
	first, err := ComputeETag(article.Article{ID: "a1", Headline: "First take"})
	if err != nil {
		t.Fatalf("ComputeETag failed: %v", err)
	}
	second, err := ComputeETag(article.Article{ID: "a1", Headline: "Second take"})
	if err != nil {
		t.Fatalf("ComputeETag failed: %v", err)
	}
	if first == second {
		t.Error("different documents produced the same etag")
	}
}
