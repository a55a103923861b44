package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// sniffLen сколько байт читаем для определения типа файла.
const sniffLen = 512

// Разрешённые типы вложений и результатов работы.
var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
	"application/zip": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var (
	ErrUnsupportedType = apperror.New(apperror.ErrCodeValidation, "неподдерживаемый формат файла, разрешены jpeg, png, pdf, docx, zip")
	ErrEmptyFile       = apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
)

// StoredFile ссылка на сохранённый файл.
type StoredFile struct {
	Name     string
	Path     string
	URL      string
	Size     int64
	MimeType string
}

// FileStorage локальное файловое хранилище файлов заказов.
type FileStorage struct {
	rootPath       string
	baseURL        string
	maxUploadBytes int64
}

// NewFileStorage создаёт файловое хранилище.
func NewFileStorage(rootPath, baseURL string, maxUploadMB int64) (*FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &FileStorage{
		rootPath:       rootPath,
		baseURL:        strings.TrimRight(baseURL, "/"),
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// DetectType определяет тип файла по содержимому.
func DetectType(head []byte) (string, error) {
	if len(head) == 0 {
		return "", ErrEmptyFile
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", ErrUnsupportedType
	}
	if !allowedTypes[kind.MIME.Value] {
		return "", ErrUnsupportedType
	}
	return kind.MIME.Value, nil
}

// Save проверяет тип и размер, сохраняет файл в каталог заказа и возвращает ссылку.
func (s *FileStorage) Save(ctx context.Context, orderID uuid.UUID, originalName string, r io.Reader) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]

	mimeType, err := DetectType(head)
	if err != nil {
		return nil, err
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), safeName)

	orderDir := filepath.Join(s.rootPath, orderID.String())
	if err := os.MkdirAll(orderDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог заказа: %w", err)
	}

	targetPath := filepath.Join(orderDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, apperror.Newf(apperror.ErrCodeValidation, "размер файла превышает лимит %d МБ", s.maxUploadBytes/1024/1024)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := path.Join(orderID.String(), fileName)
	return &StoredFile{
		Name:     safeName,
		Path:     relative,
		URL:      s.baseURL + "/" + relative,
		Size:     written,
		MimeType: mimeType,
	}, nil
}

// Delete удаляет файл из хранилища.
func (s *FileStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" || name == "." {
		name = "file"
	}
	return name
}
