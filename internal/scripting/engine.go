package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LoadDir compiles every .lua file in dir, in file name order, into a
// system. A missing directory yields no systems.
func LoadDir(dir string, log *zap.Logger) ([]*LuaSystem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read script dir %s: %w", dir, err)
	}
	var systems []*LuaSystem
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := LoadFile(path, log)
		if err != nil {
			for _, loaded := range systems {
				loaded.Close()
			}
			return nil, err
		}
		systems = append(systems, s)
		log.Debug("loaded lua system", zap.String("file", path), zap.String("system", s.Name()))
	}
	return systems, nil
}

// LoadFile compiles one script. Its system name defaults to the file name
// without extension.
func LoadFile(path string, log *zap.Logger) (*LuaSystem, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := NewLuaSystem(name, string(src), log)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}
