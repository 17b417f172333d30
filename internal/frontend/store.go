package frontend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	outputPrefix    = "tts_output_"
	outputExt       = ".mp3"
	timestampLayout = "20060102_150405"
)

// ErrInvalidName имя файла не относится к сохраненному аудио
var ErrInvalidName = errors.New("некорректное имя файла")

// SavedAudio аудио, сохраненное в локальный каталог
type SavedAudio struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// OutputStore сохраняет аудио в каталог под именем tts_output_<YYYYMMDD_HHMMSS>.mp3
type OutputStore struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewOutputStore создает хранилище. Каталог создается при первой записи.
func NewOutputStore(dir string, logger *zap.Logger) *OutputStore {
	if dir == "" {
		dir = "output"
	}
	return &OutputStore{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}
}

// Dir возвращает каталог хранилища
func (s *OutputStore) Dir() string {
	return s.dir
}

// FileName возвращает имя файла для момента t
func FileName(t time.Time) string {
	return outputPrefix + t.Format(timestampLayout) + outputExt
}

// Save записывает аудио на диск. Запись в ту же секунду перезаписывает файл.
func (s *OutputStore) Save(data []byte) (*SavedAudio, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", s.dir, err)
	}

	createdAt := s.now()
	name := FileName(createdAt)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}

	s.logger.Info("аудио сохранено",
		zap.String("path", path),
		zap.Int("size", len(data)))

	return &SavedAudio{
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: createdAt,
	}, nil
}

// Open открывает сохраненное аудио по имени
func (s *OutputStore) Open(name string) (*os.File, error) {
	if !isOutputName(name) {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(s.dir, name))
}

// List возвращает сохраненные файлы, новые первыми
func (s *OutputStore) List() ([]SavedAudio, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения каталога %s: %w", s.dir, err)
	}

	var files []SavedAudio
	for _, entry := range entries {
		if entry.IsDir() || !isOutputName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SavedAudio{
			Name:      entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})

	return files, nil
}

// Prune удаляет файлы старше olderThan. При dryRun только возвращает кандидатов.
func (s *OutputStore) Prune(olderThan time.Duration, dryRun bool) ([]SavedAudio, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-olderThan)
	var removed []SavedAudio
	for _, f := range files {
		if !f.CreatedAt.Before(cutoff) {
			continue
		}
		if !dryRun {
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, fmt.Errorf("ошибка удаления %s: %w", f.Path, err)
			}
		}
		removed = append(removed, f)
	}

	return removed, nil
}

func isOutputName(name string) bool {
	return name == filepath.Base(name) &&
		strings.HasPrefix(name, outputPrefix) &&
		strings.HasSuffix(name, outputExt)
}
