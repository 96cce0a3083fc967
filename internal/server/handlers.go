package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medassist/apps/backend/internal/consult"
)

const (
	defaultMaxUploadBytes = 10 << 20
	multipartMemoryBytes  = 8 << 20
	formOverheadBytes     = 1 << 20
)

type consultForm struct {
	Message   string `json:"message"`
	Condition string `json:"condition"`
	Upload    *consult.Upload `json:"-"`
}

// httpError carries a status and detail for failures detected before the
// pipeline runs.
type httpError struct {
	Status int
	Detail string
}

func (e *httpError) Error() string {
	return e.Detail
}

func tooLargeError() *httpError {
	return &httpError{Status: http.StatusRequestEntityTooLarge, Detail: "Uploaded file is too large"}
}

func (a *App) uploadLimit() int64 {
	if a.cfg.MaxUploadBytes > 0 {
		return a.cfg.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

// readConsultForm reads message, condition and the optional file from a
// multipart, urlencoded or JSON body.
func (a *App) readConsultForm(c *gin.Context) (consultForm, error) {
	limit := a.uploadLimit()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverheadBytes)

	form := consultForm{}
	switch c.ContentType() {
	case gin.MIMEJSON:
		if err := c.ShouldBindJSON(&form); err != nil {
			if isBodyTooLarge(err) {
				return form, tooLargeError()
			}
			return form, &httpError{Status: http.StatusBadRequest, Detail: "Invalid request payload"}
		}
		return form, nil
	case gin.MIMEMultipartPOSTForm:
		if err := c.Request.ParseMultipartForm(multipartMemoryBytes); err != nil {
			return form, formParseError(err)
		}
	default:
		if err := c.Request.ParseForm(); err != nil {
			return form, formParseError(err)
		}
	}

	form.Message = c.Request.PostFormValue("message")
	form.Condition = c.Request.PostFormValue("condition")

	upload, err := readUpload(c.Request, limit)
	if err != nil {
		return form, err
	}
	form.Upload = upload
	return form, nil
}

func readUpload(r *http.Request, limit int64) (*consult.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return nil, nil
	}
	header := files[0]
	if strings.TrimSpace(header.Filename) == "" {
		return nil, nil
	}
	if header.Size > limit {
		return nil, tooLargeError()
	}

	file, err := header.Open()
	if err != nil {
		return nil, &httpError{Status: http.StatusBadRequest, Detail: "Uploaded file could not be opened"}
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, &httpError{Status: http.StatusBadRequest, Detail: "Uploaded file could not be read"}
	}
	if int64(len(content)) > limit {
		return nil, tooLargeError()
	}
	return &consult.Upload{Filename: header.Filename, Content: content}, nil
}

func formParseError(err error) error {
	if isBodyTooLarge(err) {
		return tooLargeError()
	}
	return &httpError{Status: http.StatusBadRequest, Detail: "Invalid form payload"}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}
