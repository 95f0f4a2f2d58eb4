package domain

import "sort"

// FileID identifies an uploaded file.
type FileID int64

const (
	FileTypeImage = "image"
	FileTypeVideo = "video"

	// VariantTypeThumbnail marks a downscaled rendition of a file.
	VariantTypeThumbnail = "thumbnail"
)

// File is an attachment or avatar. Type distinguishes image, video and other
// kinds of files.
type File struct {
	ID       FileID
	Name     string
	Type     string
	Variants []FileVariant
}

// FileVariant is one encoded rendition of a File.
type FileVariant struct {
	ID        int64
	Score     float64
	Extension string
	Type      string
	Size      float64
	URL       string
	Mime      string
}

// ThumbnailVariants returns the thumbnail renditions of f, highest score
// first. Files without thumbnails return all of their variants instead.
func (f File) ThumbnailVariants() []FileVariant {
	var thumbs []FileVariant
	for _, v := range f.Variants {
		if v.Type == VariantTypeThumbnail {
			thumbs = append(thumbs, v)
		}
	}
	if len(thumbs) == 0 {
		thumbs = append(thumbs, f.Variants...)
	}
	sortByScore(thumbs)
	return thumbs
}

// BestVariant returns the highest-scoring variant of f.
func (f File) BestVariant() (FileVariant, bool) {
	if len(f.Variants) == 0 {
		return FileVariant{}, false
	}
	best := f.Variants[0]
	for _, v := range f.Variants[1:] {
		if v.Score > best.Score {
			best = v
		}
	}
	return best, true
}

func sortByScore(variants []FileVariant) {
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Score > variants[j].Score
	})
}
