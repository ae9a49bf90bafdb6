package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/jacentio/storefront/blob"
	"github.com/jacentio/storefront/commerce"
)

// payloadField is the multipart field holding the JSON document.
const payloadField = "payload"

// decode reads a JSON body into dst. A multipart/form-data body carries the
// JSON document in its "payload" field, and the files of fileFields are
// returned in form order.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, fileFields ...string) ([]blob.Object, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, h.decodeJSON(r.Body, dst)
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, bodyError(err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if payload := r.FormValue(payloadField); payload != "" {
		if err := json.Unmarshal([]byte(payload), dst); err != nil {
			return nil, commerce.BadRequest("invalid payload: " + err.Error())
		}
	}

	var objs []blob.Object
	for _, field := range fileFields {
		for _, fh := range r.MultipartForm.File[field] {
			obj, err := readFile(fh)
			if err != nil {
				return nil, err
			}
			objs = append(objs, obj)
		}
	}
	return objs, nil
}

func (h *Handler) decodeJSON(body io.Reader, dst any) error {
	err := json.NewDecoder(body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return bodyError(err)
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return commerce.BadRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return commerce.BadRequest("invalid request body: " + err.Error())
}

func readFile(fh *multipart.FileHeader) (blob.Object, error) {
	f, err := fh.Open()
	if err != nil {
		return blob.Object{}, commerce.BadRequest("cannot read file " + fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return blob.Object{}, bodyError(err)
	}
	if len(data) == 0 {
		return blob.Object{}, commerce.BadRequest("file " + fh.Filename + " is empty")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return blob.Object{Data: data, ContentType: contentType}, nil
}
