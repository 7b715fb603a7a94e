package protocol

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tmacam/dcrawl/internal/apperr"
)

// ResultBoundary is the fixed multipart boundary legacy workers expect
// bit-exactly. It intentionally contains a character ('$') outside the
// charset mime/multipart.Writer.SetBoundary permits, so result uploads
// are assembled by hand rather than through multipart.Writer.
const ResultBoundary = "----------ThIs_Is_tHe_bouNdaRY_$"

// ResultContentType is the Content-Type header value sent with every
// result upload.
const ResultContentType = "multipart/form-data; boundary=" + ResultBoundary

const crlf = "\r\n"

// ResultUpload is the decoded form of a worker's POST to
// /<task>/<params...>.
type ResultUpload struct {
	// SID echoes the job's params, carried in the "article-sid" field.
	SID string
	// Data is the raw payload carried in the "article-data" field.
	Data []byte
	// Filename is the filename the worker attached to "article-data".
	Filename string
	// Extra holds any controller-specific text fields beyond
	// article-sid/article-data.
	Extra map[string]string
}

// EncodeResult builds the bit-exact multipart/form-data body a legacy
// coordinator expects for a result upload: "article-sid" and
// "article-data" fields plus any controller-specific extra fields, in
// that order, joined by the fixed ResultBoundary.
func EncodeResult(sid, filename string, data []byte, extra map[string]string) []byte {
	var buf bytes.Buffer
	writeField(&buf, "article-sid", sid)
	writeFileField(&buf, "article-data", filename, data)
	for k, v := range extra {
		writeField(&buf, k, v)
	}
	buf.WriteString("--" + ResultBoundary + "--" + crlf)
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, name, value string) {
	buf.WriteString("--" + ResultBoundary + crlf)
	buf.WriteString(fmt.Sprintf(`Content-Disposition: form-data; name="%s"`, name) + crlf)
	buf.WriteString(crlf)
	buf.WriteString(value + crlf)
}

func writeFileField(buf *bytes.Buffer, name, filename string, data []byte) {
	buf.WriteString("--" + ResultBoundary + crlf)
	buf.WriteString(fmt.Sprintf(`Content-Disposition: form-data; name="%s"; filename="%s"`, name, filename) + crlf)
	buf.WriteString("Content-Type: application/octet-stream" + crlf)
	buf.WriteString(crlf)
	buf.Write(data)
	buf.WriteString(crlf)
}

// DecodeResult parses a result upload request. It accepts the
// standard multipart/form-data framing regardless of the exact
// boundary string the client used, so it interoperates with both this
// package's own encoder and any legacy worker.
func DecodeResult(r *http.Request) (ResultUpload, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return ResultUpload{}, apperr.WrongCommandFormat("result upload is not multipart/form-data: %v", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return ResultUpload{}, apperr.WrongCommandFormat("result upload missing multipart boundary")
	}

	reader := multipart.NewReader(r.Body, boundary)
	upload := ResultUpload{Extra: map[string]string{}}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ResultUpload{}, apperr.WrongCommandFormat("malformed multipart body: %v", err)
		}

		name := part.FormName()
		switch name {
		case "article-sid":
			b, err := io.ReadAll(part)
			if err != nil {
				return ResultUpload{}, apperr.WrongCommandFormat("reading article-sid: %v", err)
			}
			upload.SID = string(b)
		case "article-data":
			b, err := io.ReadAll(part)
			if err != nil {
				return ResultUpload{}, apperr.WrongCommandFormat("reading article-data: %v", err)
			}
			upload.Data = b
			upload.Filename = part.FileName()
		default:
			if name == "" {
				continue
			}
			b, err := io.ReadAll(part)
			if err != nil {
				return ResultUpload{}, apperr.WrongCommandFormat("reading field %s: %v", name, err)
			}
			upload.Extra[name] = string(b)
		}
		part.Close()
	}

	if upload.SID == "" {
		return ResultUpload{}, apperr.WrongCommandFormat("result upload missing article-sid field")
	}
	return upload, nil
}
