// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"bytes"
	"encoding/xml"
)

const (
	// ListFileName is the archive member listing every file's digest and size.
	ListFileName = "APP-LIST.xml"

	// ListNamespace is the default namespace of APP-LIST.xml.
	ListNamespace = "http://apstandard.com/ns/1"
	// SignatureNamespace is bound to the ns2 prefix in APP-LIST.xml.
	SignatureNamespace = "http://www.w3.org/2000/09/xmldsig#"
)

type (
	fileList struct {
		XMLName xml.Name        `xml:"files"`
		Xmlns   string          `xml:"xmlns,attr,omitempty"`
		Ns2     string          `xml:"xmlns:ns2,attr,omitempty"`
		Files   []fileListEntry `xml:"file"`
	}

	fileListEntry struct {
		SHA256 string `xml:"sha256,attr"`
		Name   string `xml:"name,attr"`
		Size   int64  `xml:"size,attr"`
	}
)

// GenerateFileList renders APP-LIST.xml for entries. Directories are left
// out. When meta is non-nil a final element describes the APP-META.xml member
// itself, hashed over meta.
func GenerateFileList(entries []FileEntry, meta []byte) ([]byte, error) {
	doc := fileList{
		Xmlns: ListNamespace,
		Ns2:   SignatureNamespace,
		Files: make([]fileListEntry, 0, len(entries)+1),
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		doc.Files = append(doc.Files, fileListEntry{
			SHA256: e.ContentHash,
			Name:   e.RelativePath,
			Size:   e.Size,
		})
	}
	if meta != nil {
		doc.Files = append(doc.Files, fileListEntry{
			SHA256: digestBytes(meta),
			Name:   MetaFileName,
			Size:   int64(len(meta)),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, &SerializationError{Document: ListFileName, Err: err}
	}
	return buf.Bytes(), nil
}

// parseFileList decodes APP-LIST.xml content.
func parseFileList(data []byte) ([]fileListEntry, error) {
	var doc struct {
		XMLName xml.Name        `xml:"files"`
		Files   []fileListEntry `xml:"file"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Files, nil
}
