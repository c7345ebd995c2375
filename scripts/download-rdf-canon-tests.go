//go:build ignore

package main

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	suiteURL    = "https://github.com/w3c/rdf-canon/archive/refs/heads/main.zip"
	suiteSubdir = "tests"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <output-directory>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDownloads the W3C rdf-canon test suite to the specified directory.\n")
		fmt.Fprintf(os.Stderr, "The directory will hold manifest.jsonld and the rdfc10/ test files.\n")
		fmt.Fprintf(os.Stderr, "\nExample: %s ./rdf-canon-tests\n", os.Args[0])
		os.Exit(1)
	}

	outputDir := os.Args[1]
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Downloading rdf-canon tests to: %s\n", outputDir)
	count, err := download(outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error downloading rdf-canon tests: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Extracted %d files\n", count)
	fmt.Printf("Set RDF_CANON_TESTS_DIR=%s to run conformance tests.\n", outputDir)
}

func download(outputDir string) (int, error) {
	tempFile := filepath.Join(os.TempDir(), "rdf-canon-download.zip")
	defer os.Remove(tempFile)

	fmt.Printf("  Fetching from %s...\n", suiteURL)
	resp, err := http.Get(suiteURL)
	if err != nil {
		return 0, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return 0, fmt.Errorf("failed to save download: %w", err)
	}
	out.Close()

	fmt.Printf("  Extracting...\n")
	return extractZip(tempFile, outputDir)
}

// extractZip copies every file below <repo>-main/tests/ into outputDir.
func extractZip(zipFile, outputDir string) (int, error) {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		idx := strings.Index(f.Name, "/"+suiteSubdir+"/")
		if idx < 0 {
			continue
		}
		relPath := f.Name[idx+len(suiteSubdir)+2:]
		if relPath == "" || strings.Contains(relPath, "..") {
			continue
		}

		destPath := filepath.Join(outputDir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return count, err
		}
		if err := copyZipFile(f, destPath); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func copyZipFile(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
