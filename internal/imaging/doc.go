// Package imaging provides the image handling around plate recognition.
//
// The native plate engine consumes raw encoded bytes, so nothing here sits on
// the recognition path itself. This package covers the supporting work: decoding
// files for inspection, caching decoded images, estimating a vehicle color for
// scan metadata, preparing frames for the OCR fallback, and rendering thumbnails
// for stored scans.
//
// # Supported Formats
//
// JPEG, PNG, GIF and BMP are registered with image.Decode. Format support is
// decided at decode time; ReadInfo reports the detected format name as image.Decode
// saw it ("jpeg", "png", "gif", "bmp").
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The remaining functions are
// stateless and can be called concurrently on different images. Operations on
// the same image should be synchronized by the caller if the image is mutable.
//
// # Performance Considerations
//
// For repeated operations on the same file, use ImageCache to avoid redundant
// disk reads. Large images may consume significant memory when cached.
// Consider using Evict() or Clear() to manage memory for long-running processes.
package imaging
