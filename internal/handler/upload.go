package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
)

// multipartOverhead leaves room for boundaries and part headers
const multipartOverhead = 64 << 10

// readUpload reads the "file" part of a multipart body, capped at maxBytes.
func readUpload(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, service.ErrTooLarge
		}
		return nil, fmt.Errorf("%w: a multipart file field named \"file\" is required", service.ErrInvalidInput)
	}
	if header.Size > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", service.ErrTooLarge, maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
