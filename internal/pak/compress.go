package pak

import (
	"compress/zlib"
	"fmt"
	"io"
)

func decompress(r io.Reader, kind CompressionKind) ([]byte, error) {
	switch kind {
	case CompressionNone:
		return io.ReadAll(r)
	case CompressionZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("pak: unknown compression kind %d", kind)
	}
}
