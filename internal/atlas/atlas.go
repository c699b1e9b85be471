// Package atlas упаковывает PNG/BMP-текстуры блоков в один атлас.
//
// Кадры раскладываются по полкам в порядке убывания высоты,
// имя кадра равно имени файла без расширения (например grass_side).
package atlas

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/annel0/voxel-level/internal/world"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Extensions поддерживаемые расширения файлов текстур
var Extensions = []string{".png", ".bmp"}

// MaxWidth ширина атласа, после которой начинается новая полка
const MaxWidth = 1024

// Atlas упакованный атлас: RGBA-пиксели и прямоугольники кадров
type Atlas struct {
	Width  int
	Height int
	Pixels []byte // RGBA, построчно
	Frames map[string]world.UVRect
}

// Pack раскладывает изображения по полкам шириной не более MaxWidth
func Pack(images map[string]image.Image) (*Atlas, error) {
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		hi, hj := images[names[i]].Bounds().Dy(), images[names[j]].Bounds().Dy()
		if hi != hj {
			return hi > hj
		}
		return names[i] < names[j]
	})

	type placement struct {
		name string
		at   image.Point
	}
	var (
		placed             []placement
		x, y, shelf, width int
	)
	for _, name := range names {
		b := images[name].Bounds()
		if b.Dx() > MaxWidth {
			return nil, fmt.Errorf("текстура %s шире атласа (%d > %d)", name, b.Dx(), MaxWidth)
		}
		if x+b.Dx() > MaxWidth {
			x, y = 0, y+shelf
			shelf = 0
		}
		placed = append(placed, placement{name: name, at: image.Pt(x, y)})
		x += b.Dx()
		if x > width {
			width = x
		}
		if b.Dy() > shelf {
			shelf = b.Dy()
		}
	}
	height := y + shelf

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	frames := make(map[string]world.UVRect, len(placed))
	for _, p := range placed {
		img := images[p.name]
		b := img.Bounds()
		draw.Draw(canvas, image.Rectangle{Min: p.at, Max: p.at.Add(b.Size())}, img, b.Min, draw.Src)
		frames[p.name] = world.UVRect{
			X: float32(p.at.X),
			Y: float32(p.at.Y),
			W: float32(b.Dx()),
			H: float32(b.Dy()),
		}
	}

	return &Atlas{Width: width, Height: height, Pixels: canvas.Pix, Frames: frames}, nil
}

// LoadDir читает все текстуры из директории. Имя кадра равно имени
// файла без расширения, поэтому grass.png и grass.bmp конфликтуют.
func LoadDir(dir string) (map[string]image.Image, error) {
	var paths []string
	for _, ext := range Extensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("в %s нет текстур (%s)", dir, strings.Join(Extensions, ", "))
	}

	images := make(map[string]image.Image, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, dup := images[name]; dup {
			return nil, fmt.Errorf("текстура %s задана несколькими файлами", name)
		}
		img, err := decodeImage(path)
		if err != nil {
			return nil, err
		}
		images[name] = img
	}
	return images, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	return img, nil
}
