package container

import (
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

var (
	TypeHeic = types.NewType("heic", "image/heic")
	TypeHeif = types.NewType("heif", "image/heif")
)

func init() {
	// TypeHeif shares its identity with the library's builtin heif type, so
	// this registration replaces the builtin matcher and the heic brands
	// fall through to TypeHeic.
	filetype.AddMatcher(TypeHeic, ftypMatcher("heic", "heix", "hevc", "hevx"))
	filetype.AddMatcher(TypeHeif, ftypMatcher("mif1", "msf1", "heim", "heis"))
}

func ftypMatcher(brands ...string) func(data []byte) bool {
	return func(data []byte) bool {
		if len(data) < 12 {
			return false
		}

		if data[4] != 'f' ||
			data[5] != 't' ||
			data[6] != 'y' ||
			data[7] != 'p' {
			return false
		}

		for _, brand := range brands {
			if string(data[8:12]) == brand {
				return true
			}
		}

		return false
	}
}

func Match(data []byte) types.Type {
	t, _ := filetype.Match(data)

	return t
}

var heicMimes = map[string]struct{}{
	MimeHEIC:         {},
	MimeHEIF:         {},
	MimeHEICSequence: {},
	MimeHEIFSequence: {},
}

var heicExtensions = []string{".heic", ".heif", ".hif"}

// IsHEIC classifies an input as a HEIC/HEIF photo from its declared media
// type, falling back to the file extension when the declared type is absent
// or generic. Cameras and file pickers frequently hand HEIC files over with
// an empty or octet-stream media type, so the type alone cannot be trusted.
func IsHEIC(mediaType string, name string) bool {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	if _, ok := heicMimes[mediaType]; ok {
		return true
	}

	if mediaType != "" && mediaType != "application/octet-stream" {
		return false
	}

	name = strings.ToLower(name)
	for _, ext := range heicExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}

	return false
}

// IsImage reports whether an input is processable at all: any declared
// image type, or a HEIC classified by IsHEIC.
func IsImage(mediaType string, name string) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/") {
		return true
	}

	return IsHEIC(mediaType, name)
}
