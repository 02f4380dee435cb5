package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/code-troopers/postits/internal/config"
	"github.com/code-troopers/postits/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// Options fills the generated postits.yml
type Options struct {
	APIURL    string // defaults to http://localhost:3010
	Transport string // websocket (default) or redis
	RedisURL  string
	Instance  string
}

// Initialize writes postits.yml into dir and returns its path.
// If force is true an existing file is replaced.
func Initialize(dir string, opts Options, force bool) (string, error) {
	path := filepath.Join(dir, config.DefaultPath)

	if force {
		if err := handleForce(path); err != nil {
			return "", err
		}
	} else if err := CheckExisting(dir); err != nil {
		return "", err
	}

	content, err := render(opts)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// Validate created file
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", path, err)
	}

	return path, nil
}

// CheckExisting returns an error when dir already holds a postits.yml
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'postits init --force' to reinitialize (this will overwrite existing configuration)", path)
	}
	return nil
}

// handleForce removes an existing postits.yml if present
func handleForce(path string) error {
	if _, err := os.Stat(path); err == nil {
		printer.Warning("Removing existing %s...\n", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func render(opts Options) ([]byte, error) {
	if opts.APIURL == "" {
		opts.APIURL = config.Default().Server.APIURL
	}
	if opts.Transport == "" {
		opts.Transport = config.TransportWebSocket
	}
	if opts.Transport == config.TransportRedis && opts.Instance == "" {
		opts.Instance = "default"
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/postits.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read postits.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("failed to render postits.yml: %w", err)
	}
	return buf.Bytes(), nil
}

// PrintSuccess prints the success message with the created file
func PrintSuccess(path string) {
	printer.Success("Created %s\n", path)
	printer.Println("\nNext steps:")
	printer.Println("  1. Set auth.token (or export POSTITS_TOKEN)")
	printer.Println("  2. Check the connection:\n       postits whoami && postits boards")
	printer.Println("  3. Follow live activity:\n       postits watch")
}
