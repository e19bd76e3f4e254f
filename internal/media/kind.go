package media

import "frame-viewer/internal/mediatypes"

// Kind classifies a source path by how it is decoded.
type Kind = mediatypes.FileType

// Source kinds.
const (
	KindImage   = mediatypes.FileTypeImage
	KindVideo   = mediatypes.FileTypeVideo
	KindUnknown = mediatypes.FileTypeOther
)

// DetectKind classifies path by its extension.
func DetectKind(path string) Kind {
	return mediatypes.GetFileType(mediatypes.Ext(path))
}
