package sniffer

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

type MediaType string

const (
	TypeMP4  MediaType = "mp4"
	TypeMOV  MediaType = "mov"
	TypeWEBM MediaType = "webm"
	TypeMKV  MediaType = "mkv"
	TypeAVI  MediaType = "avi"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	if isMP4(head) {
		return Result{Type: TypeMP4, MIME: "video/mp4"}, nil
	}
	if isMOV(head) {
		return Result{Type: TypeMOV, MIME: "video/quicktime"}, nil
	}
	if isMatroska(head) {
		// webm is a matroska subset; the doctype distinguishes them.
		if bytes.Contains(head, []byte("webm")) {
			return Result{Type: TypeWEBM, MIME: "video/webm"}, nil
		}
		return Result{Type: TypeMKV, MIME: "video/x-matroska"}, nil
	}
	if isAVI(head) {
		return Result{Type: TypeAVI, MIME: "video/x-msvideo"}, nil
	}

	return Result{}, ErrUnknownType
}

func isMP4(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	brand := string(head[8:12])
	switch brand {
	case "isom", "iso2", "mp41", "mp42", "avc1", "dash", "M4V ":
		return true
	default:
		return false
	}
}

func isMOV(head []byte) bool {
	return len(head) >= 12 && string(head[4:8]) == "ftyp" && string(head[8:12]) == "qt  "
}

func isMatroska(head []byte) bool {
	ebmlMagic := []byte{0x1a, 0x45, 0xdf, 0xa3}
	return len(head) >= len(ebmlMagic) && bytes.Equal(head[:len(ebmlMagic)], ebmlMagic)
}

func isAVI(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("AVI "))
}

func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
