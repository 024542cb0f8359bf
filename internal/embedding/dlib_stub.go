//go:build !dlib

package embedding

// DlibAvailable reports whether this binary was built with dlib support.
const DlibAvailable = false

// NewLocalExtractor always fails without the dlib build tag.
func NewLocalExtractor(modelDir string) (LocalExtractor, error) {
	return nil, ErrDlibUnavailable
}
