// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"strings"
	"testing"
)

func TestGenerateFileList(t *testing.T) {
	t.Parallel()

	entries := []FileEntry{
		{RelativePath: "assets", Kind: KindDirectory},
		{RelativePath: "main.py", Kind: KindFile, ContentHash: digestBytes([]byte("a")), Size: 1},
		{RelativePath: "lib/a&b.py", Kind: KindFile, ContentHash: digestBytes(nil), Size: 0},
	}
	meta := []byte(`<application version="1.2" packaged="2024-01-02T03:04:05"/>`)

	out, err := GenerateFileList(entries, meta)
	if err != nil {
		t.Fatalf("GenerateFileList() failed: %v", err)
	}
	doc := string(out)

	if !strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML declaration:\n%s", doc)
	}
	if !strings.Contains(doc, `<files xmlns="http://apstandard.com/ns/1" xmlns:ns2="http://www.w3.org/2000/09/xmldsig#">`) {
		t.Errorf("root element does not declare both namespaces:\n%s", doc)
	}
	if strings.Contains(doc, `name="assets"`) {
		t.Errorf("directory listed:\n%s", doc)
	}
	if !strings.Contains(doc, `sha256="ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb" name="main.py" size="1"`) {
		t.Errorf("main.py record missing:\n%s", doc)
	}
	if !strings.Contains(doc, `name="lib/a&amp;b.py" size="0"`) {
		t.Errorf("names are not escaped:\n%s", doc)
	}

	records, err := parseFileList(out)
	if err != nil {
		t.Fatalf("parseFileList() failed: %v", err)
	}
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "main.py,lib/a&b.py,"+MetaFileName {
		t.Errorf("record order = %v", names)
	}
	self := records[len(records)-1]
	if self.SHA256 != digestBytes(meta) || self.Size != int64(len(meta)) {
		t.Errorf("self record = %+v", self)
	}
}

func TestGenerateFileList_WithoutMeta(t *testing.T) {
	t.Parallel()

	out, err := GenerateFileList(nil, nil)
	if err != nil {
		t.Fatalf("GenerateFileList() failed: %v", err)
	}
	records, err := parseFileList(out)
	if err != nil {
		t.Fatalf("parseFileList() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v, want none", records)
	}
}
