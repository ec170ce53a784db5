package archive

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zip"

	"github.com/cheahjs/replicate-image-bundler/internal/fetch"
)

const (
	FileName = "output_files.zip"
	MIMEType = "application/zip"
)

// EntryName names the image at 1-based position n of the full result list.
// Failed positions leave gaps, so a name always matches the image's rank in the
// generation response.
func EntryName(n int) string {
	return fmt.Sprintf("output_file_%d.png", n)
}

// Entry describes one file inside the archive.
type Entry struct {
	Name    string `json:"name"`
	Locator string `json:"locator"`
	Size    int    `json:"size"`
}

// Archive is an in-memory ZIP of the successfully fetched images.
type Archive struct {
	Entries  []Entry
	Failures []*fetch.Failure
	Data     []byte
}

func (a *Archive) Size() int {
	return len(a.Data)
}

// Build writes one stored entry per successful result, in result order. Entries
// carry no timestamps, so the same results always produce identical bytes.
func Build(results []fetch.Result) (*Archive, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	archive := &Archive{Entries: []Entry{}}
	for i, result := range results {
		if !result.OK() {
			archive.Failures = append(archive.Failures, result.Failure)
			continue
		}

		name := EntryName(i + 1)
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(result.Data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}

		archive.Entries = append(archive.Entries, Entry{Name: name, Locator: result.Locator, Size: len(result.Data)})
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	archive.Data = buf.Bytes()
	return archive, nil
}
