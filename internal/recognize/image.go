package recognize

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// allowedTypes maps accepted upload extensions to their sniffed content type.
var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Image is an uploaded form picture.
type Image struct {
	Name string
	Data []byte
}

// ContentType validates the upload and returns its content type. Both the
// extension and the sniffed bytes must be jpg, jpeg or png.
func (img Image) ContentType() (string, error) {
	ext := strings.ToLower(filepath.Ext(img.Name))
	want, ok := allowedTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q (want jpg, jpeg or png)", ErrUnsupportedImage, ext)
	}
	if len(img.Data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}
	got := http.DetectContentType(img.Data)
	if got != want {
		return "", fmt.Errorf("%w: %s content in a %s file", ErrUnsupportedImage, got, ext)
	}
	return got, nil
}
