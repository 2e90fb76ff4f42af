package core

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxArchiveEntries   = 200
	maxArchiveTotalSize = 32 * 1024 * 1024
	maxArchiveFileSize  = 4 * 1024 * 1024
)

// movieDoc is the YAML shape of one catalog entry.
type movieDoc struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Genre       struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"genre"`
	Director struct {
		Name  string `yaml:"name"`
		Bio   string `yaml:"bio"`
		Birth *int   `yaml:"birth"`
		Death *int   `yaml:"death"`
	} `yaml:"director"`
	ImagePath string `yaml:"image_path"`
	Featured  bool   `yaml:"featured"`
}

type catalogDoc struct {
	Movies []movieDoc `yaml:"movies"`
}

// ParseCatalogArchive converts a zip seed package into movie rows.
// Expected layout:
//
//	movies.yaml (required)
//	images/* (optional, referenced by image_path; not stored here)
//
// Files may be placed directly under the archive root or under a single
// top-level folder.
func ParseCatalogArchive(data []byte) ([]Movie, error) {
	if len(data) == 0 {
		return nil, errors.New("archive is empty")
	}
	// Accept zip only
	if len(data) < 4 || !bytes.Equal(data[:4], []byte{'P', 'K', 0x03, 0x04}) {
		return nil, errors.New("only zip archives are supported")
	}

	files := map[string][]byte{}
	rootName, err := collectFromZip(data, files)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("archive contains no usable files")
	}

	configBytes, ok := files["movies.yaml"]
	if !ok && rootName != "" {
		// tolerate a doubled top-level folder
		if stripPrefix(files, rootName+"/") {
			configBytes, ok = files["movies.yaml"]
		}
	}
	if !ok {
		return nil, errors.New("movies.yaml not found in archive")
	}

	return parseCatalogYAML(configBytes)
}

// ParseCatalogYAML parses a bare movies.yaml document (no archive).
func ParseCatalogYAML(data []byte) ([]Movie, error) {
	return parseCatalogYAML(data)
}

func parseCatalogYAML(data []byte) ([]Movie, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid movies.yaml: %w", err)
	}
	if len(doc.Movies) == 0 {
		return nil, errors.New("movies.yaml lists no movies")
	}

	seen := map[string]struct{}{}
	movies := make([]Movie, 0, len(doc.Movies))
	for i, d := range doc.Movies {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			return nil, fmt.Errorf("movie %d: title is required", i+1)
		}
		if strings.TrimSpace(d.Description) == "" {
			return nil, fmt.Errorf("movie %q: description is required", title)
		}
		if _, dup := seen[title]; dup {
			return nil, fmt.Errorf("movie %q: duplicate title", title)
		}
		seen[title] = struct{}{}

		movies = append(movies, Movie{
			Title:       title,
			Description: d.Description,
			Genre:       Genre{Name: d.Genre.Name, Description: d.Genre.Description},
			Director: Director{
				Name:  d.Director.Name,
				Bio:   d.Director.Bio,
				Birth: d.Director.Birth,
				Death: d.Director.Death,
			},
			ImagePath: d.ImagePath,
			Featured:  d.Featured,
		})
	}
	return movies, nil
}

// collectFromZip reads entries into files keyed by path relative to the
// single top-level folder (if any). Returns that folder's name.
func collectFromZip(data []byte, files map[string][]byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.New("failed to read zip archive")
	}
	if len(zr.File) > maxArchiveEntries {
		return "", errors.New("archive has too many entries")
	}

	rootName := ""
	sameRoot := true
	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		if strings.HasPrefix(name, "..") || path.IsAbs(name) {
			return "", fmt.Errorf("unsafe path in archive: %s", f.Name)
		}
		if f.UncompressedSize64 > maxArchiveFileSize {
			return "", fmt.Errorf("file too large in archive: %s", name)
		}
		total += int64(f.UncompressedSize64)
		if total > maxArchiveTotalSize {
			return "", errors.New("archive too large")
		}

		parts := strings.SplitN(name, "/", 2)
		if len(parts) == 2 {
			if rootName == "" {
				rootName = parts[0]
			} else if rootName != parts[0] {
				sameRoot = false
			}
		} else {
			sameRoot = false
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveFileSize+1))
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		files[name] = content
	}

	if rootName != "" && sameRoot {
		stripPrefix(files, rootName+"/")
		return rootName, nil
	}
	return "", nil
}

// stripPrefix rewrites all keys removing prefix; reports whether any key changed.
func stripPrefix(files map[string][]byte, prefix string) bool {
	changed := false
	for name, content := range files {
		if strings.HasPrefix(name, prefix) {
			delete(files, name)
			files[strings.TrimPrefix(name, prefix)] = content
			changed = true
		}
	}
	return changed
}
