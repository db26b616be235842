package form

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ImageKind tells which of the three image states an Image holds.
type ImageKind int

const (
	ImageNone ImageKind = iota
	ImageRemote
	ImageLocal
)

func (k ImageKind) String() string {
	switch k {
	case ImageRemote:
		return "remote"
	case ImageLocal:
		return "local"
	default:
		return "none"
	}
}

// LocalFile is a file picked by the user that has not been uploaded yet.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (f *LocalFile) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// Image is either absent, a reference to an image the backend already
// stores, or a newly selected local file. The zero value is absent.
type Image struct {
	kind ImageKind
	ref  string
	file *LocalFile
}

func NoImage() Image {
	return Image{}
}

// RemoteImage wraps an opaque locator. An empty locator is no image.
func RemoteImage(ref string) Image {
	if ref == "" {
		return Image{}
	}
	return Image{kind: ImageRemote, ref: ref}
}

// LocalImage wraps a selected file. A nil file is no image.
func LocalImage(f *LocalFile) Image {
	if f == nil {
		return Image{}
	}
	return Image{kind: ImageLocal, file: f}
}

func (i Image) Kind() ImageKind { return i.kind }
func (i Image) IsZero() bool { return i.kind == ImageNone }
func (i Image) Ref() string { return i.ref }
func (i Image) File() *LocalFile { return i.file }
func (i Image) IsRemote() bool { return i.kind == ImageRemote }
func (i Image) IsLocal() bool { return i.kind == ImageLocal }

func (i Image) String() string {
	switch i.kind {
	case ImageRemote:
		return i.ref
	case ImageLocal:
		return fmt.Sprintf("file:%s (%s, %d bytes)", i.file.Name, i.file.ContentType, i.file.Size())
	default:
		return ""
	}
}

// MarshalJSON renders null, the remote locator, or a file summary.
func (i Image) MarshalJSON() ([]byte, error) {
	switch i.kind {
	case ImageRemote:
		return json.Marshal(i.ref)
	case ImageLocal:
		return json.Marshal(struct {
			Name        string `json:"name"`
			ContentType string `json:"contentType"`
			Size        int    `json:"size"`
		}{i.file.Name, i.file.ContentType, i.file.Size()})
	default:
		return []byte("null"), nil
	}
}

// imageFrom converts the loosely typed values accepted by State.Set.
func imageFrom(value any) (Image, error) {
	switch v := value.(type) {
	case nil:
		return NoImage(), nil
	case Image:
		return v, nil
	case *Image:
		if v == nil {
			return NoImage(), nil
		}
		return *v, nil
	case *LocalFile:
		return LocalImage(v), nil
	case string:
		return RemoteImage(v), nil
	default:
		return NoImage(), fmt.Errorf("%w: image cannot hold %T", ErrInvalidValue, value)
	}
}
