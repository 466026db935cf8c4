package render

import (
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	fontSrc  *text.FontSource
	fontErr  error
)

// defaultFontSource parses the embedded Go Regular face once. Used when a
// watermark does not supply its own font.
func defaultFontSource() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSrc, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSrc, fontErr
}

// LoadFontSource reads a TTF/OTF file for use as a watermark face.
func LoadFontSource(path string) (*text.FontSource, error) {
	return text.NewFontSourceFromFile(path)
}
