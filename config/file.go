package config

import (
	"bytes"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dchest/safefile"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/arclightning/arclight/catalog"
)

// File is the panel's TOML configuration:
//
//	listen_port = 8080
//	static_dir = "static"
//	password = "$2a$04$..."
//
//	[games.touhou_123]
//	name = "Touhou"
//	exe_path = "games/touhou/th123.exe"
type File struct {
	ListenPort uint16 `toml:"listen_port"`
	StaticDir  string `toml:"static_dir"`
	// Password is the bcrypt hash of the panel password. It is never logged.
	Password  string                  `toml:"password,omitempty"`
	SplashDir string                  `toml:"splash_dir,omitempty"`
	Games     map[string]catalog.Game `toml:"games"`
}

// LoadFile reads and validates the TOML file at path. Relative static_dir,
// splash_dir and exe_path values are resolved against the file's directory.
func LoadFile(path string) (File, error) {
	f, err := DecodeFile(path)
	if err != nil {
		return File{}, err
	}
	f.resolve(filepath.Dir(path))
	return f, nil
}

// DecodeFile reads and validates the TOML file at path, leaving paths exactly
// as written. Use it when the file is going to be saved back.
func DecodeFile(path string) (File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return File{}, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Validate checks the top-level fields and every game entry.
func (f File) Validate() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.ListenPort, validation.Required),
		validation.Field(&f.StaticDir, validation.Required),
	); err != nil {
		return err
	}
	ids := make([]string, 0, len(f.Games))
	for id := range f.Games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("games: empty game id")
		}
		if err := f.Games[id].Validate(); err != nil {
			return fmt.Errorf("games.%s: %w", id, err)
		}
	}
	return nil
}

// Catalog builds the game catalog from the file.
func (f File) Catalog() *catalog.Catalog {
	return catalog.New(f.Games)
}

// Addr joins host with the configured port.
func (f File) Addr(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(int(f.ListenPort)))
}

// Save writes f to path atomically, so a crash never leaves a truncated file.
func (f File) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := safefile.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (f *File) resolve(base string) {
	f.StaticDir = resolvePath(base, f.StaticDir)
	if f.SplashDir != "" {
		f.SplashDir = resolvePath(base, f.SplashDir)
	}
	for id, g := range f.Games {
		g.ExePath = resolvePath(base, g.ExePath)
		f.Games[id] = g
	}
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
