package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix расширение файлов уровня, сжатых zstd
const CompressedSuffix = ".zst"

// Кодер и декодер переиспользуются между вызовами,
// EncodeAll/DecodeAll безопасны для параллельного вызова.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: не удалось создать zstd кодер: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: не удалось создать zstd декодер: " + err.Error())
	}
}

func compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/4))
}

func decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки zstd: %w", err)
	}
	return out, nil
}
