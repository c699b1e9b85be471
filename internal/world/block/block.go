package block

import "strings"

// DefaultNamespace пространство имён встроенных блоков
const DefaultNamespace = "core"

// BlockData значение вокселя: ссылка на блок по идентификатору
type BlockData struct {
	Namespace string
	Name      string
}

// Air воздух. Нулевое значение BlockData тоже считается воздухом.
var Air = BlockData{Namespace: DefaultNamespace, Name: "air"}

// New создаёт BlockData из строки вида "namespace:name".
// Без пространства имён используется DefaultNamespace.
func New(identifier string) BlockData {
	ns, name, ok := strings.Cut(identifier, ":")
	if !ok {
		return BlockData{Namespace: DefaultNamespace, Name: identifier}
	}
	return BlockData{Namespace: ns, Name: name}
}

// Identifier возвращает полный идентификатор блока
func (b BlockData) Identifier() string {
	if b.IsAir() {
		return Air.Namespace + ":" + Air.Name
	}
	return b.Namespace + ":" + b.Name
}

// IsAir проверяет, является ли блок воздухом
func (b BlockData) IsAir() bool {
	return b == BlockData{} || b == Air
}

// IsEmpty сообщает, пуст ли воксель. Воздух и невидимые блоки пусты,
// неизвестные реестру блоки считаются заполненными.
func (b BlockData) IsEmpty(reg *Registry) bool {
	if b.IsAir() {
		return true
	}
	if reg == nil {
		return false
	}
	desc, ok := reg.Lookup(b.Identifier())
	if !ok {
		return false
	}
	return !desc.Visible
}

// MarshalText кодирует блок строкой "namespace:name".
// Нулевое значение кодируется пустой строкой.
func (b BlockData) MarshalText() ([]byte, error) {
	if b == (BlockData{}) {
		return []byte{}, nil
	}
	return []byte(b.Namespace + ":" + b.Name), nil
}

// UnmarshalText разбирает строку "namespace:name"
func (b *BlockData) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = BlockData{}
		return nil
	}
	*b = New(string(text))
	return nil
}

// String возвращает идентификатор блока
func (b BlockData) String() string {
	return b.Identifier()
}
