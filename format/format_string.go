package format

import "fmt"

var formatNames = map[Format]string{
	Undefined:          "Undefined",
	R4G4UNorm:          "R4G4UNorm",
	R4G4B4A4UNorm:      "R4G4B4A4UNorm",
	R5G6B5UNorm:        "R5G6B5UNorm",
	R5G5B5A1UNorm:      "R5G5B5A1UNorm",
	R8UNorm:            "R8UNorm",
	R8SNorm:            "R8SNorm",
	R8UInt:             "R8UInt",
	R8SInt:             "R8SInt",
	R8SRGB:             "R8SRGB",
	R8G8UNorm:          "R8G8UNorm",
	R8G8SNorm:          "R8G8SNorm",
	R8G8UInt:           "R8G8UInt",
	R8G8SInt:           "R8G8SInt",
	R8G8SRGB:           "R8G8SRGB",
	R8G8B8UNorm:        "R8G8B8UNorm",
	R8G8B8SRGB:         "R8G8B8SRGB",
	R8G8B8A8UNorm:      "R8G8B8A8UNorm",
	R8G8B8A8SNorm:      "R8G8B8A8SNorm",
	R8G8B8A8UInt:       "R8G8B8A8UInt",
	R8G8B8A8SInt:       "R8G8B8A8SInt",
	R8G8B8A8SRGB:       "R8G8B8A8SRGB",
	B8G8R8A8UNorm:      "B8G8R8A8UNorm",
	B8G8R8A8SRGB:       "B8G8R8A8SRGB",
	R10G10B10A2UNorm:   "R10G10B10A2UNorm",
	R10G10B10A2UInt:    "R10G10B10A2UInt",
	R16UNorm:           "R16UNorm",
	R16UInt:            "R16UInt",
	R16SInt:            "R16SInt",
	R16SFloat:          "R16SFloat",
	R16G16UNorm:        "R16G16UNorm",
	R16G16UInt:         "R16G16UInt",
	R16G16SInt:         "R16G16SInt",
	R16G16SFloat:       "R16G16SFloat",
	R16G16B16A16UNorm:  "R16G16B16A16UNorm",
	R16G16B16A16UInt:   "R16G16B16A16UInt",
	R16G16B16A16SInt:   "R16G16B16A16SInt",
	R16G16B16A16SFloat: "R16G16B16A16SFloat",
	R32UInt:            "R32UInt",
	R32SInt:            "R32SInt",
	R32SFloat:          "R32SFloat",
	R32G32UInt:         "R32G32UInt",
	R32G32SInt:         "R32G32SInt",
	R32G32SFloat:       "R32G32SFloat",
	R32G32B32UInt:      "R32G32B32UInt",
	R32G32B32SInt:      "R32G32B32SInt",
	R32G32B32SFloat:    "R32G32B32SFloat",
	R32G32B32A32UInt:   "R32G32B32A32UInt",
	R32G32B32A32SInt:   "R32G32B32A32SInt",
	R32G32B32A32SFloat: "R32G32B32A32SFloat",
	D16UNorm:           "D16UNorm",
	D24UNormS8UInt:     "D24UNormS8UInt",
	D32SFloat:          "D32SFloat",
	D32SFloatS8UInt:    "D32SFloatS8UInt",
	S8UInt:             "S8UInt",
	BC1RGBUNorm:        "BC1RGBUNorm",
	BC1RGBSRGB:         "BC1RGBSRGB",
	BC2UNorm:           "BC2UNorm",
	BC2SRGB:            "BC2SRGB",
	BC3UNorm:           "BC3UNorm",
	BC3SRGB:            "BC3SRGB",
	BC4UNorm:           "BC4UNorm",
	BC5UNorm:           "BC5UNorm",
	BC6UFloat:          "BC6UFloat",
	BC7UNorm:           "BC7UNorm",
	BC7SRGB:            "BC7SRGB",
}

func (f Format) String() string {
	str, ok := formatNames[f]
	if !ok {
		return fmt.Sprintf("unknown format: %d", f)
	}
	return str
}
