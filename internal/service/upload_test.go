package service

import (
	"errors"
	"testing"
)

func TestDetectImage(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

	tests := []struct {
		name    string
		data    []byte
		max     int64
		wantCT  string
		wantExt string
		wantErr error
	}{
		{"png", pngHeader, 0, "image/png", ".png", nil},
		{"gif", gif, 0, "image/gif", ".gif", nil},
		{"jpeg", jpeg, 0, "image/jpeg", ".jpg", nil},
		{"html pretending", []byte("<html><body>hi</body></html>"), 0, "", "", ErrUnsupportedMedia},
		{"empty", nil, 0, "", "", ErrInvalidInput},
		{"too large", pngHeader, 8, "", "", ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, ext, err := DetectImage(tt.data, tt.max)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || ct != tt.wantCT || ext != tt.wantExt {
				t.Errorf("DetectImage() = %q, %q, %v; want %q, %q", ct, ext, err, tt.wantCT, tt.wantExt)
			}
		})
	}
}
