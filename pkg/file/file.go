package file

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileOperations defines the read-only file access used by the watchdog.
type FileOperations interface {
	IsFileExists(filePath string) (bool, error)
	ReadFileHead(filePath string, limit int64) ([]byte, error)
	ReadYamlFile(filePath string, v any) error
}

// FileService implements the FileOperations interface using standard file operations.
type FileService struct {
	// StrictYaml rejects YAML keys that do not map to a field of the target.
	StrictYaml bool
}

// NewFileService creates a new instance of FileService.
func NewFileService() *FileService {
	return &FileService{StrictYaml: true}
}

// IsFileExists checks if the file exists and returns boolean and error
func (fs *FileService) IsFileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}

	// checking err == nil because of permission related error
	return err == nil, err
}

// ReadFileHead reads at most limit bytes from the start of the file.
// sysfs attributes report a page-sized length, so they are never read whole.
func (fs *FileService) ReadFileHead(filePath string, limit int64) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(io.LimitReader(file, limit))
}

// ReadYamlFile reads and unmarshals YAML data from the given file.
func (fs *FileService) ReadYamlFile(filePath string, v any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(fs.StrictYaml)
	return decoder.Decode(v)
}
