package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileOptions confines the file tools to a root directory.
type FileOptions struct {
	Root         string `mapstructure:"root"`
	MaxReadBytes int    `mapstructure:"max_read_bytes"`
}

func (o *FileOptions) setDefaults() {
	if o.Root == "" {
		o.Root = "."
	}
	if o.MaxReadBytes == 0 {
		o.MaxReadBytes = 256 * 1024
	}
}

type listDirArgs struct {
	Path string `json:"path" jsonschema:"required,description=Directory to list"`
}

type readFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=File to read"`
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File to write"`
	Content string `json:"content" jsonschema:"required,description=Content to write"`
}

// NewListDirTool lists directory entries under the configured root.
func NewListDirTool(opts FileOptions) (Tool, error) {
	opts.setDefaults()
	return NewFunc("list_dir", "List the entries of a directory.",
		func(ctx context.Context, args listDirArgs) (string, error) {
			path, err := resolvePath(opts.Root, args.Path)
			if err != nil {
				return "", err
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				return "", fmt.Errorf("failed to list %s: %w", args.Path, err)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			return strings.Join(names, "\n"), nil
		})
}

// NewReadFileTool reads a file under the configured root.
func NewReadFileTool(opts FileOptions) (Tool, error) {
	opts.setDefaults()
	return NewFunc("read_file", "Read the contents of a file.",
		func(ctx context.Context, args readFileArgs) (string, error) {
			path, err := resolvePath(opts.Root, args.Path)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("failed to read %s: %w", args.Path, err)
			}
			if len(data) > opts.MaxReadBytes {
				return string(data[:opts.MaxReadBytes]) + "\n... (truncated)", nil
			}
			return string(data), nil
		})
}

// NewWriteFileTool writes a file under the configured root, creating parent
// directories as needed.
func NewWriteFileTool(opts FileOptions) (Tool, error) {
	opts.setDefaults()
	return NewFunc("write_file", "Write content to a file, replacing it if it exists.",
		func(ctx context.Context, args writeFileArgs) (string, error) {
			path, err := resolvePath(opts.Root, args.Path)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return "", fmt.Errorf("failed to create directories: %w", err)
			}
			if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
				return "", fmt.Errorf("failed to write %s: %w", args.Path, err)
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path), nil
		})
}

// resolvePath joins path against root and rejects escapes.
func resolvePath(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	resolved := filepath.Clean(filepath.Join(absRoot, path))
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the allowed root", path)
	}
	return resolved, nil
}
