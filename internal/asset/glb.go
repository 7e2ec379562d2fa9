package asset

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/qmuntal/gltf"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
	glbHeader    = 12
)

// IsGLB reports whether data starts with the binary glTF magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}

// decodeDocument unmarshals the document and returns the GLB binary chunk,
// if any. URIs are left untouched.
func decodeDocument(data []byte) (*gltf.Document, []byte, error) {
	jsonChunk, bin := data, []byte(nil)
	if IsGLB(data) {
		var err error
		jsonChunk, bin, err = splitGLB(data)
		if err != nil {
			return nil, nil, err
		}
	}
	doc := new(gltf.Document)
	if err := json.Unmarshal(bytes.TrimLeft(jsonChunk, "\xef\xbb\xbf \t\r\n"), doc); err != nil {
		return nil, nil, fmt.Errorf("asset: decode document: %w", err)
	}
	return doc, bin, nil
}

func splitGLB(data []byte) (jsonChunk, bin []byte, err error) {
	if len(data) < glbHeader+8 {
		return nil, nil, fmt.Errorf("asset: glb header truncated")
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != 2 {
		return nil, nil, fmt.Errorf("%w: glb container version %d", ErrUnsupportedVersion, v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:]))
	if total > len(data) {
		return nil, nil, fmt.Errorf("asset: glb declares %d bytes, have %d", total, len(data))
	}

	off := glbHeader
	for off+8 <= total {
		n := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		start, end := off+8, off+8+n
		if end > total {
			return nil, nil, fmt.Errorf("asset: glb chunk of %d bytes overruns container", n)
		}
		switch kind {
		case glbChunkJSON:
			if jsonChunk == nil {
				jsonChunk = data[start:end]
			}
		case glbChunkBIN:
			if bin == nil {
				bin = data[start:end]
			}
		}
		off = end + (4-n%4)%4
	}
	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("asset: glb has no JSON chunk")
	}
	return jsonChunk, bin, nil
}
