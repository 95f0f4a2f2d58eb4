package domain

import "testing"

func TestThumbnailVariants(t *testing.T) {
	f := File{
		ID:   1,
		Type: FileTypeImage,
		Variants: []FileVariant{
			{ID: 1, Score: 10, Type: "image"},
			{ID: 2, Score: 1, Type: VariantTypeThumbnail},
			{ID: 3, Score: 5, Type: VariantTypeThumbnail},
		},
	}

	got := f.ThumbnailVariants()
	if len(got) != 2 {
		t.Fatalf("expected 2 thumbnails, got %d", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("expected thumbnails ordered by score, got ids %d, %d", got[0].ID, got[1].ID)
	}
}

func TestThumbnailVariantsFallsBackToAll(t *testing.T) {
	f := File{Variants: []FileVariant{{ID: 1, Score: 1}, {ID: 2, Score: 2}}}

	got := f.ThumbnailVariants()
	if len(got) != 2 || got[0].ID != 2 {
		t.Fatalf("expected all variants ordered by score, got %+v", got)
	}
	if f.Variants[0].ID != 1 {
		t.Fatalf("ThumbnailVariants must not reorder the file's own variants")
	}
}

func TestBestVariant(t *testing.T) {
	if _, ok := (File{}).BestVariant(); ok {
		t.Fatalf("expected no best variant for a file without variants")
	}

	f := File{Variants: []FileVariant{{ID: 1, Score: 0.5}, {ID: 2, Score: 0.9}, {ID: 3, Score: 0.1}}}
	best, ok := f.BestVariant()
	if !ok || best.ID != 2 {
		t.Fatalf("expected variant 2, got %+v (ok=%v)", best, ok)
	}
}

func TestDisplayName(t *testing.T) {
	if got := (User{Name: "Alice", ScreenName: "alice"}).DisplayName(); got != "Alice" {
		t.Errorf("expected Alice, got %q", got)
	}
	if got := (User{ScreenName: "alice"}).DisplayName(); got != "alice" {
		t.Errorf("expected screen name fallback, got %q", got)
	}
}
