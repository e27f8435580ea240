package sniffer

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mp4Head(brand string) []byte {
	head := make([]byte, 16)
	copy(head[4:8], "ftyp")
	copy(head[8:12], brand)
	return head
}

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		typ  MediaType
		mime string
	}{
		{"mp4 isom", mp4Head("isom"), TypeMP4, "video/mp4"},
		{"mp4 avc1", mp4Head("avc1"), TypeMP4, "video/mp4"},
		{"mov", mp4Head("qt  "), TypeMOV, "video/quicktime"},
		{"webm", append([]byte{0x1a, 0x45, 0xdf, 0xa3}, []byte("...webm...")...), TypeWEBM, "video/webm"},
		{"mkv", append([]byte{0x1a, 0x45, 0xdf, 0xa3}, []byte("matroska")...), TypeMKV, "video/x-matroska"},
		{"avi", append([]byte("RIFF\x00\x00\x00\x00AVI "), make([]byte, 4)...), TypeAVI, "video/x-msvideo"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.typ, res.Type)
			assert.Equal(t, tc.mime, res.MIME)
		})
	}
}

func TestDetectHeadRejectsUnknown(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		{},
		[]byte("not a video at all"),
		mp4Head("zzzz"),
		[]byte("RIFF\x00\x00\x00\x00WAVE"),
		[]byte{0x89, 'P', 'N', 'G'},
	} {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnknownType)
	}
}

func TestDetectReturnsConsumedHead(t *testing.T) {
	payload := append(mp4Head("isom"), bytes.Repeat([]byte{0xab}, 1024)...)

	res, head, err := Detect(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, TypeMP4, res.Type)
	assert.Len(t, head, 512)
	assert.Equal(t, payload[:512], head)
}

func TestDetectShortInput(t *testing.T) {
	res, head, err := Detect(strings.NewReader(string(mp4Head("mp42"))))
	require.NoError(t, err)
	assert.Equal(t, TypeMP4, res.Type)
	assert.Len(t, head, 16)
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "", MimeTypeFromHTTP(h))

	h.Set("Content-Type", "video/mp4")
	assert.Equal(t, "video/mp4", MimeTypeFromHTTP(h))

	h.Set("Content-Type", "video/webm; codecs=vp9")
	assert.Equal(t, "video/webm", MimeTypeFromHTTP(h))
}
