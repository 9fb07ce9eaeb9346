// Package tesseract registers a local OCR engine backed by libtesseract.
// The engine is compiled only with the "tesseract" build tag and needs the
// native library and headers.
package tesseract
