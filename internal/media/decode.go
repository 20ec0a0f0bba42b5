package media

import (
	"encoding/base64"
	"io"
	"mime/multipart"
	"strings"

	"github.com/Baaaki/foodgram/internal/apperrors"
)

// maxUploadSize caps raw image payloads.
const maxUploadSize = 10 << 20

// Upload is an undecoded image payload as received from a client.
type Upload struct {
	Data []byte
	// Ext is the client supplied extension, used only when the decoder
	// cannot tell the format.
	Ext string
}

// FromDataURI parses "data:image/<ext>;base64,<payload>". The payload is
// padded to a multiple of four before decoding.
func FromDataURI(value string) (*Upload, error) {
	header, payload, found := strings.Cut(value, ";base64,")
	if !found || !strings.HasPrefix(header, "data:image/") {
		return nil, apperrors.ErrInvalidImage
	}

	payload = strings.TrimSpace(payload)
	if missing := len(payload) % 4; missing != 0 {
		payload += strings.Repeat("=", 4-missing)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, apperrors.ErrInvalidBase64
	}
	if len(data) > maxUploadSize {
		return nil, apperrors.ErrInvalidImage
	}

	return &Upload{Data: data, Ext: strings.TrimPrefix(header, "data:image/")}, nil
}

// FromMultipart reads an uploaded form file.
func FromMultipart(fh *multipart.FileHeader) (*Upload, error) {
	if fh.Size > maxUploadSize {
		return nil, apperrors.ErrInvalidImage
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.ErrInvalidImage
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil || len(data) == 0 || len(data) > maxUploadSize {
		return nil, apperrors.ErrInvalidImage
	}

	ext := ""
	if i := strings.LastIndex(fh.Filename, "."); i >= 0 {
		ext = strings.ToLower(fh.Filename[i+1:])
	}
	return &Upload{Data: data, Ext: ext}, nil
}
