// Package watermark composites a logo onto photos as a semi-transparent
// watermark.
//
// Both inputs are normalized to non-premultiplied RGBA before blending. The
// logo is anchored at the top-left corner of the photo; a logo larger than the
// photo in either dimension is scaled down to fit, keeping its aspect ratio.
// Each covered channel is computed as
//
//	out = base*(1-a) + logo*a, a = logoAlpha/255 * opacity
//
// and every other pixel is copied unchanged. The output keeps the photo's
// encoding for JPEG, PNG, BMP and TIFF. GIF and WebP photos are written as
// PNG, so pixels outside the logo stay exact.
//
// Image headers are read before any pixel data, and an image declaring more
// than Options.MaxPixels pixels is rejected without being decoded.
//
// A Compositor may be shared by concurrent callers as long as each call writes
// to its own output path.
package watermark
