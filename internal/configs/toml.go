package configs

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SaveTOML writes data to filePath through a temp file and rename, creating
// the directory if needed.
func SaveTOML(filePath string, data any) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// LoadTOML decodes filePath into data. Unknown keys are an error so typos
// in the config file do not go unnoticed.
func LoadTOML(filePath string, data any) error {
	md, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return &UnknownKeysError{Keys: undecoded}
	}
	return nil
}

// UnknownKeysError lists config keys that match no setting.
type UnknownKeysError struct {
	Keys []toml.Key
}

func (e *UnknownKeysError) Error() string {
	msg := "unknown config keys:"
	for _, k := range e.Keys {
		msg += " " + k.String()
	}
	return msg
}
