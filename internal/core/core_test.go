package core

import "testing"

func TestSourceArticleKey(t *testing.T) {
	a := SourceArticle{Title: "Rates Hold Steady", SourceName: "Reuters"}
	b := SourceArticle{Title: "Rates Hold Steady", SourceName: "Reuters", Link: "https://other.example/2"}
	if a.Key() != b.Key() {
		t.Error("Expected identical keys for same (title, source) regardless of link")
	}

	c := SourceArticle{Title: "Rates Hold Steady", SourceName: "AP"}
	if a.Key() == c.Key() {
		t.Error("Expected different keys for different sources")
	}
}

func TestPublishRecordHasImage(t *testing.T) {
	var nilRecord *PublishRecord
	if nilRecord.HasImage() {
		t.Error("Expected nil record to report no image")
	}

	record := &PublishRecord{}
	if record.HasImage() {
		t.Error("Expected empty record to report no image")
	}

	record.ImageData = "aGVsbG8="
	if !record.HasImage() {
		t.Error("Expected record with image data to report an image")
	}

	record = &PublishRecord{ImageHaiku: "aGVsbG8="}
	if !record.HasImage() {
		t.Error("Expected record with only the haiku image to report an image")
	}
}

func TestStepString(t *testing.T) {
	cases := []struct {
		step Step
		want string
	}{
		{StepDraft, "Draft"},
		{StepReviewed, "Reviewed"},
		{StepIllustrated, "Illustrated"},
		{StepFinalReview, "Final Review"},
		{Step(99), "Unknown"},
	}
	for _, tc := range cases {
		if got := tc.step.String(); got != tc.want {
			t.Errorf("Expected %q for step %d, got %q", tc.want, int(tc.step), got)
		}
	}
}
