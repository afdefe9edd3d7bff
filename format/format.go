// Package format is a stateless lookup table of pixel format metadata: the
// byte size and channel count of each format, plus the classification
// predicates consumers need to validate copies out of mapped memory objects.
// It implements no format semantics of its own.
package format

// Format identifies one pixel format.
type Format int32

const (
	Undefined Format = iota
	R4G4UNorm
	R4G4B4A4UNorm
	R5G6B5UNorm
	R5G5B5A1UNorm
	R8UNorm
	R8SNorm
	R8UInt
	R8SInt
	R8SRGB
	R8G8UNorm
	R8G8SNorm
	R8G8UInt
	R8G8SInt
	R8G8SRGB
	R8G8B8UNorm
	R8G8B8SRGB
	R8G8B8A8UNorm
	R8G8B8A8SNorm
	R8G8B8A8UInt
	R8G8B8A8SInt
	R8G8B8A8SRGB
	B8G8R8A8UNorm
	B8G8R8A8SRGB
	R10G10B10A2UNorm
	R10G10B10A2UInt
	R16UNorm
	R16UInt
	R16SInt
	R16SFloat
	R16G16UNorm
	R16G16UInt
	R16G16SInt
	R16G16SFloat
	R16G16B16A16UNorm
	R16G16B16A16UInt
	R16G16B16A16SInt
	R16G16B16A16SFloat
	R32UInt
	R32SInt
	R32SFloat
	R32G32UInt
	R32G32SInt
	R32G32SFloat
	R32G32B32UInt
	R32G32B32SInt
	R32G32B32SFloat
	R32G32B32A32UInt
	R32G32B32A32SInt
	R32G32B32A32SFloat
	D16UNorm
	D24UNormS8UInt
	D32SFloat
	D32SFloatS8UInt
	S8UInt
	BC1RGBUNorm
	BC1RGBSRGB
	BC2UNorm
	BC2SRGB
	BC3UNorm
	BC3SRGB
	BC4UNorm
	BC5UNorm
	BC6UFloat
	BC7UNorm
	BC7SRGB

	formatCount
)

type attr uint8

const (
	attrNorm attr = 1 << iota
	attrInt
	attrFloat
	attrSRGB
	attrDepthStencil
	attrCompressed
)

type info struct {
	size     int
	channels int
	attrs    attr
}

// Block-compressed sizes are per 4x4 block.
var formatTable = [formatCount]info{
	Undefined:          {0, 0, 0},
	R4G4UNorm:          {1, 2, attrNorm},
	R4G4B4A4UNorm:      {2, 4, attrNorm},
	R5G6B5UNorm:        {2, 3, attrNorm},
	R5G5B5A1UNorm:      {2, 4, attrNorm},
	R8UNorm:            {1, 1, attrNorm},
	R8SNorm:            {1, 1, attrNorm},
	R8UInt:             {1, 1, attrInt},
	R8SInt:             {1, 1, attrInt},
	R8SRGB:             {1, 1, attrNorm | attrSRGB},
	R8G8UNorm:          {2, 2, attrNorm},
	R8G8SNorm:          {2, 2, attrNorm},
	R8G8UInt:           {2, 2, attrInt},
	R8G8SInt:           {2, 2, attrInt},
	R8G8SRGB:           {2, 2, attrNorm | attrSRGB},
	R8G8B8UNorm:        {3, 3, attrNorm},
	R8G8B8SRGB:         {3, 3, attrNorm | attrSRGB},
	R8G8B8A8UNorm:      {4, 4, attrNorm},
	R8G8B8A8SNorm:      {4, 4, attrNorm},
	R8G8B8A8UInt:       {4, 4, attrInt},
	R8G8B8A8SInt:       {4, 4, attrInt},
	R8G8B8A8SRGB:       {4, 4, attrNorm | attrSRGB},
	B8G8R8A8UNorm:      {4, 4, attrNorm},
	B8G8R8A8SRGB:       {4, 4, attrNorm | attrSRGB},
	R10G10B10A2UNorm:   {4, 4, attrNorm},
	R10G10B10A2UInt:    {4, 4, attrInt},
	R16UNorm:           {2, 1, attrNorm},
	R16UInt:            {2, 1, attrInt},
	R16SInt:            {2, 1, attrInt},
	R16SFloat:          {2, 1, attrFloat},
	R16G16UNorm:        {4, 2, attrNorm},
	R16G16UInt:         {4, 2, attrInt},
	R16G16SInt:         {4, 2, attrInt},
	R16G16SFloat:       {4, 2, attrFloat},
	R16G16B16A16UNorm:  {8, 4, attrNorm},
	R16G16B16A16UInt:   {8, 4, attrInt},
	R16G16B16A16SInt:   {8, 4, attrInt},
	R16G16B16A16SFloat: {8, 4, attrFloat},
	R32UInt:            {4, 1, attrInt},
	R32SInt:            {4, 1, attrInt},
	R32SFloat:          {4, 1, attrFloat},
	R32G32UInt:         {8, 2, attrInt},
	R32G32SInt:         {8, 2, attrInt},
	R32G32SFloat:       {8, 2, attrFloat},
	R32G32B32UInt:      {12, 3, attrInt},
	R32G32B32SInt:      {12, 3, attrInt},
	R32G32B32SFloat:    {12, 3, attrFloat},
	R32G32B32A32UInt:   {16, 4, attrInt},
	R32G32B32A32SInt:   {16, 4, attrInt},
	R32G32B32A32SFloat: {16, 4, attrFloat},
	D16UNorm:           {2, 1, attrNorm | attrDepthStencil},
	D24UNormS8UInt:     {4, 2, attrNorm | attrDepthStencil},
	D32SFloat:          {4, 1, attrFloat | attrDepthStencil},
	D32SFloatS8UInt:    {5, 2, attrFloat | attrDepthStencil},
	S8UInt:             {1, 1, attrInt | attrDepthStencil},
	BC1RGBUNorm:        {8, 4, attrNorm | attrCompressed},
	BC1RGBSRGB:         {8, 4, attrNorm | attrSRGB | attrCompressed},
	BC2UNorm:           {16, 4, attrNorm | attrCompressed},
	BC2SRGB:            {16, 4, attrNorm | attrSRGB | attrCompressed},
	BC3UNorm:           {16, 4, attrNorm | attrCompressed},
	BC3SRGB:            {16, 4, attrNorm | attrSRGB | attrCompressed},
	BC4UNorm:           {8, 1, attrNorm | attrCompressed},
	BC5UNorm:           {16, 2, attrNorm | attrCompressed},
	BC6UFloat:          {16, 3, attrFloat | attrCompressed},
	BC7UNorm:           {16, 4, attrNorm | attrCompressed},
	BC7SRGB:            {16, 4, attrNorm | attrSRGB | attrCompressed},
}

func lookup(f Format) info {
	if f < 0 || f >= formatCount {
		return formatTable[Undefined]
	}
	return formatTable[f]
}

// Size returns the byte size of one texel, or of one 4x4 block for
// block-compressed formats. Undefined and unknown formats report zero.
func Size(f Format) int {
	return lookup(f).size
}

// ChannelCount returns the number of channels the format carries.
func ChannelCount(f Format) int {
	return lookup(f).channels
}

// IsDepthStencil reports whether the format holds depth and/or stencil data.
func IsDepthStencil(f Format) bool {
	return lookup(f).attrs&attrDepthStencil != 0
}

// IsNorm reports whether the format's channels are normalized.
func IsNorm(f Format) bool {
	return lookup(f).attrs&attrNorm != 0
}

// IsInt reports whether the format's channels are unnormalized integers.
func IsInt(f Format) bool {
	return lookup(f).attrs&attrInt != 0
}

// IsFloat reports whether the format's channels are floating-point.
func IsFloat(f Format) bool {
	return lookup(f).attrs&attrFloat != 0
}

// IsSRGB reports whether the format carries sRGB-encoded color.
func IsSRGB(f Format) bool {
	return lookup(f).attrs&attrSRGB != 0
}

// IsCompressed reports whether the format is block-compressed.
func IsCompressed(f Format) bool {
	return lookup(f).attrs&attrCompressed != 0
}
