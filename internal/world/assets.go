package world

import (
	"sort"
	"strings"
)

// Face индекс грани блока в таблице UV
type Face int

// Порядок граней: запад, восток, низ, верх, юг, север
const (
	FaceWest Face = iota
	FaceEast
	FaceDown
	FaceUp
	FaceSouth
	FaceNorth

	FaceCount // всегда последний
)

// UVRect прямоугольник текстуры в пикселях атласа
type UVRect struct {
	X float32 `yaml:"x" json:"x"`
	Y float32 `yaml:"y" json:"y"`
	W float32 `yaml:"w" json:"w"`
	H float32 `yaml:"h" json:"h"`
}

// FaceUVs прямоугольники текстур для всех шести граней блока
type FaceUVs [FaceCount]UVRect

// AssetRegistry таблица текстур блоков и размер атласа
type AssetRegistry struct {
	TextureUVs  map[string]FaceUVs `yaml:"texture_uvs" json:"texture_uvs"`
	TextureSize [2]float32         `yaml:"texture_size" json:"texture_size"`
}

// NewAssetRegistry создаёт пустой реестр текстур
func NewAssetRegistry() AssetRegistry {
	return AssetRegistry{TextureUVs: make(map[string]FaceUVs)}
}

// faceSuffixes грани, заполняемые по суффиксу имени текстуры
var faceSuffixes = map[string][]Face{
	"side":  {FaceWest, FaceEast, FaceSouth, FaceNorth},
	"west":  {FaceWest},
	"east":  {FaceEast},
	"down":  {FaceDown},
	"up":    {FaceUp},
	"south": {FaceSouth},
	"north": {FaceNorth},
}

// splitTextureName отделяет распознанный суффикс грани от имени блока
func splitTextureName(name string) (string, []Face) {
	pos := strings.LastIndexByte(name, '_')
	if pos < 0 {
		return name, nil
	}
	faces, ok := faceSuffixes[name[pos+1:]]
	if !ok {
		return name, nil
	}
	return name[:pos], faces
}

// ApplyTexture записывает прямоугольник текстуры по соглашению об именах:
// суффикс _west/_east/_down/_up/_south/_north заполняет одну грань,
// _side заполняет четыре боковые грани, имя без суффикса заполняет все шесть.
// Новый блок начинается с этого прямоугольника на всех гранях.
func (a *AssetRegistry) ApplyTexture(name string, rect UVRect) {
	if a.TextureUVs == nil {
		a.TextureUVs = make(map[string]FaceUVs)
	}

	blockName, faces := splitTextureName(name)
	rects, exists := a.TextureUVs[blockName]
	if !exists || faces == nil {
		for i := range rects {
			rects[i] = rect
		}
	}
	for _, f := range faces {
		rects[f] = rect
	}
	a.TextureUVs[blockName] = rects
}

// Lookup возвращает UV граней блока
func (a *AssetRegistry) Lookup(name string) (FaceUVs, bool) {
	rects, ok := a.TextureUVs[name]
	return rects, ok
}

// LoadTextures применяет упакованные кадры атласа и сохраняет пиксели.
// Кадры без суффикса применяются первыми, поэтому грани с суффиксом
// всегда их перекрывают.
func (l *Level[V, R]) LoadTextures(frames map[string]UVRect, width, height int, pixels []byte) {
	names := make([]string, 0, len(frames))
	for name := range frames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		_, fi := splitTextureName(names[i])
		_, fj := splitTextureName(names[j])
		if (fi == nil) != (fj == nil) {
			return fi == nil
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		l.assets.ApplyTexture(name, frames[name])
	}
	l.SetAtlas(pixels, width, height)
}

// SetAtlas сохраняет пиксели атласа и его размер
func (l *Level[V, R]) SetAtlas(pixels []byte, width, height int) {
	l.atlas = append([]byte(nil), pixels...)
	l.assets.TextureSize = [2]float32{float32(width), float32(height)}
}
