package attachments

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/models"
)

var (
	ErrUnsupportedType = errors.New("unsupported attachment type")
	ErrStorage         = errors.New("attachment storage failed")
	ErrEmptyFile       = errors.New("attachment is empty")
)

// Типы документов, которые разрешено отправлять как файл.
// image/* классифицируется отдельно.
var allowedDocuments = []string{
	"application/pdf",
	"application/zip",
	"text/plain",
	"text/csv",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Store кладет байты вложения на диск и возвращает стабильную ссылку.
// Сохранение всегда завершается до отправки сообщения в конвейер:
// осиротевший файл допустим, битая ссылка в комнате — нет.
type Store struct {
	dir     string
	baseURL string
}

func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Link определяет вид вложения по содержимому, сохраняет байты и
// возвращает вид и ссылку для тела сообщения
func (s *Store) Link(data []byte) (models.MessageKind, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}

	mtype := mimetype.Detect(data)

	kind, ok := classify(mtype)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	name := uuid.New().String() + mtype.Extension()
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return kind, s.baseURL + "/" + name, nil
}

func classify(mtype *mimetype.MIME) (models.MessageKind, bool) {
	if strings.HasPrefix(mtype.String(), "image/") {
		return models.KindImage, true
	}
	// Is сравнивает без параметров вроде charset
	for _, allowed := range allowedDocuments {
		if mtype.Is(allowed) {
			return models.KindFile, true
		}
	}
	return "", false
}
