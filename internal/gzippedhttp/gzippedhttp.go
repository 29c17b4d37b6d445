// Package gzippedhttp lets clients send gzip-compressed request bodies.
// Response compression is negotiated separately by the router.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/logger"
)

// CompressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

// NewCompressedReader returns a new CompressedReader that reads gzip-compressed data
// from the provided io.ReadCloser.
func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zippedRequestBody, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zippedRequestBody,
	}, nil
}

// Read reads decompressed data from the underlying gzip stream.
func (c *CompressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying io.ReadCloser.
func (c *CompressedReader) Close() error {
	if err := c.r.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

// DecompressRequest replaces a body sent with "Content-Encoding: gzip" by its
// decompressed stream. A body that is not valid gzip is rejected with 400.
func DecompressRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		decompressed, err := NewCompressedReader(request.Body)
		if err != nil {
			logger.Log.Debugln("Error calling the `NewCompressedReader()`: ", err)
			apperr.WriteJSON(response, apperr.Validation("malformed gzip body"))
			return
		}
		defer decompressed.Close()

		request.Body = decompressed
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
