package course

import "github.com/bartventer/elearning-site/core"

// Kind is the type tag of a content item.
type Kind string

const (
	KindText  Kind = "text"
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Kinds is the closed set of content kinds.
var Kinds = []Kind{KindText, KindVideo, KindImage, KindFile}

// ParseKind maps a kind name (case-insensitive) to a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(core.CleanString(name, true /* lower */))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", &UnknownKindError{Kind: name}
}

// HasUpload reports whether items of this kind carry an uploaded file.
func (k Kind) HasUpload() bool {
	return k == KindFile || k == KindImage
}
