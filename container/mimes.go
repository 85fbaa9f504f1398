package container

import "github.com/h2non/filetype/matchers"

var (
	MimeHEIC = TypeHeic.MIME.Value
	MimeHEIF = TypeHeif.MIME.Value
	MimeJPEG = matchers.TypeJpeg.MIME.Value
	MimePNG  = matchers.TypePng.MIME.Value
	MimeWEBP = matchers.TypeWebp.MIME.Value
	MimeGIF  = matchers.TypeGif.MIME.Value
)

const (
	MimeHEICSequence = "image/heic-sequence"
	MimeHEIFSequence = "image/heif-sequence"
)
