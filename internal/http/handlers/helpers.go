package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/service"
)

const filesField = "files"

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// openUploads открывает файлы из поля files. Вызывающий обязан вызвать closeAll.
func openUploads(c *gin.Context) ([]service.FileUpload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректная multipart форма")
	}

	headers := form.File[filesField]
	uploads := make([]service.FileUpload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось прочитать файл")
		}
		opened = append(opened, f)
		uploads = append(uploads, service.FileUpload{Name: fh.Filename, Content: f})
	}
	return uploads, closeAll, nil
}
