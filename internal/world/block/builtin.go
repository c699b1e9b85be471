package block

// Встроенные блоки
var (
	Stone = BlockData{Namespace: DefaultNamespace, Name: "stone"}
	Dirt  = BlockData{Namespace: DefaultNamespace, Name: "dirt"}
	Grass = BlockData{Namespace: DefaultNamespace, Name: "grass"}
	Sand  = BlockData{Namespace: DefaultNamespace, Name: "sand"}
	Water = BlockData{Namespace: DefaultNamespace, Name: "water"}
)

// GeometryCube полный куб
const GeometryCube = "core:cube"

func registerBuiltins(r *Registry) {
	r.RegisterGeometry(Geometry{
		Name:  GeometryCube,
		Boxes: []Box{{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 1}}},
	})

	r.Register(Descriptor{Identifier: Air.Identifier(), Visible: false, Solid: false})
	for _, b := range []BlockData{Stone, Dirt, Grass, Sand} {
		r.Register(Descriptor{Identifier: b.Identifier(), Geometry: GeometryCube, Visible: true, Solid: true})
	}
	// Вода видима, но проходима
	r.Register(Descriptor{Identifier: Water.Identifier(), Geometry: GeometryCube, Visible: true, Solid: false})
}
