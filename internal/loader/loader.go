package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

var (
	ErrNoSpecPath      = errors.New("openapi path is not set")
	ErrRemoteSpec      = errors.New("remote openapi documents are not supported")
	ErrUnsupportedFile = errors.New("openapi file must be a local .json, .yaml or .yml file")
)

type Result struct {
	Document *libopenapi.DocumentModel[v3.Document]
	Version  string
	Warnings []string
	RawData  []byte
	// Path is the absolute path the document was read from.
	Path string
}

// Model returns the v3 document.
func (r *Result) Model() *v3.Document {
	return &r.Document.Model
}

// BaseName returns the file name of the loaded document.
func (r *Result) BaseName() string {
	return filepath.Base(r.Path)
}

func LoadFile(path string) (*Result, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoSpecPath
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrRemoteSpec, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	config := &datamodel.DocumentConfiguration{
		BasePath:            filepath.Dir(absPath),
		AllowFileReferences: true,
	}

	result, err := loadWithConfig(data, config)
	if err != nil {
		return nil, err
	}
	result.Path = absPath
	return result, nil
}

// LoadBytes parses an in-memory document. Relative file references are not
// resolved.
func LoadBytes(data []byte, name string) (*Result, error) {
	result, err := loadWithConfig(data, nil)
	if err != nil {
		return nil, err
	}
	result.Path = name
	return result, nil
}

func loadWithConfig(data []byte, config *datamodel.DocumentConfiguration) (*Result, error) {
	var doc libopenapi.Document
	var err error

	if config != nil {
		doc, err = libopenapi.NewDocumentWithConfiguration(data, config)
	} else {
		doc, err = libopenapi.NewDocument(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("unsupported OpenAPI version: %s (only 3.x supported)", version)
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI model: %w", err)
	}

	result := &Result{
		Document: model,
		Version:  version,
		RawData:  data,
	}

	if strings.HasPrefix(version, "3.0") {
		result.Warnings = append(result.Warnings, "OpenAPI 3.0.x detected; some 3.1/3.2 features unavailable")
	}

	return result, nil
}
