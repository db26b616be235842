package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// MsgUnsupportedImage is shown when a picked file is not PNG or JPEG.
const MsgUnsupportedImage = "Only PNG or JPG files are allowed."

// MaxImageBytes bounds a picked file. Larger files count as unreadable.
const MaxImageBytes = 8 << 20

var acceptedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// PreviewStore turns a local file into a display URL. Every URL handed out
// by Acquire must come back through Release exactly once.
type PreviewStore interface {
	Acquire(f *LocalFile) (string, error)
	Release(url string)
}

// Preview owns the display source for the image field. A source derived
// from a local file is owned and released on replace, clear and teardown;
// a remote locator is shown as is and never released.
type Preview struct {
	store  PreviewStore
	prompt Prompter
	source string
	owned  bool
}

func NewPreview(store PreviewStore, prompt Prompter) *Preview {
	if prompt == nil {
		prompt = NopPrompter{}
	}
	return &Preview{store: store, prompt: prompt}
}

// Source is the current display URL, or "" when nothing is shown.
func (p *Preview) Source() string {
	return p.source
}

// ProvideExternal shows the image an edit dialog was opened with.
func (p *Preview) ProvideExternal(img Image) error {
	switch img.Kind() {
	case ImageRemote:
		p.replace(img.Ref(), false)
	case ImageLocal:
		url, err := p.store.Acquire(img.File())
		if err != nil {
			return fmt.Errorf("derive preview: %w", err)
		}
		p.replace(url, true)
	default:
		p.replace("", false)
	}
	return nil
}

// Select handles a file picker result. An empty selection clears the image;
// otherwise the first file is checked and, when accepted, becomes the image
// and the preview. A rejected file leaves state and preview untouched.
func (p *Preview) Select(ctx context.Context, files []*LocalFile, state *State) error {
	if len(files) == 0 || files[0] == nil {
		p.replace("", false)
		return state.SetAndValidate(FieldImage, NoImage())
	}

	file := files[0]
	if err := checkImage(file); err != nil {
		zap.L().Debug("image selection rejected",
			zap.String("file", file.Name),
			zap.String("contentType", file.ContentType),
			zap.Error(err))
		p.prompt.Alert(ctx, MsgUnsupportedImage)
		return err
	}

	url, err := p.store.Acquire(file)
	if err != nil {
		p.prompt.Alert(ctx, MsgUnsupportedImage)
		return fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if err := state.SetAndValidate(FieldImage, LocalImage(file)); err != nil {
		p.store.Release(url)
		return err
	}
	p.replace(url, true)
	return nil
}

// Release drops the owned preview, if any. Call it when the form goes away.
func (p *Preview) Release() {
	p.replace("", false)
}

func (p *Preview) replace(source string, owned bool) {
	if p.owned && p.source != "" && p.source != source {
		p.store.Release(p.source)
	}
	p.source = source
	p.owned = owned
}

// checkImage validates the declared type of a picked file. Files that
// declare no type are sniffed; the sniffed type is recorded on f only
// once the file is accepted.
func checkImage(f *LocalFile) error {
	if len(f.Data) == 0 {
		return ErrUnreadableImage
	}
	if len(f.Data) > MaxImageBytes {
		return fmt.Errorf("%w: larger than %d bytes", ErrUnreadableImage, MaxImageBytes)
	}
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	sniffed := ct == "" || ct == "application/octet-stream"
	if sniffed {
		ct = mimetype.Detect(f.Data).String()
	}
	if !acceptedImageTypes[ct] {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, ct)
	}
	if sniffed {
		f.ContentType = ct
	}
	return nil
}
