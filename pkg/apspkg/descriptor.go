// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	// MetaFileName is the descriptor at the root of a package source tree and
	// the archive member holding the stamped copy.
	MetaFileName = "APP-META.xml"

	// PackagedAttr is the root attribute set to the build time.
	PackagedAttr = "packaged"

	// packagedLayout is ISO-8601 with whole seconds and no zone suffix.
	packagedLayout = "2006-01-02T15:04:05"
)

type (
	// Metadata is the package identity read from APP-META.xml.
	Metadata struct {
		// SchemaVersion is the root element's version attribute.
		SchemaVersion string `json:"schema_version" toml:"schema_version" yaml:"schema_version"`
		Name          string `json:"name" toml:"name" yaml:"name"`
		Version       string `json:"version" toml:"version" yaml:"version"`
		Release       string `json:"release" toml:"release" yaml:"release"`
	}

	// Descriptor is a parsed APP-META.xml document. It keeps the original
	// bytes so Stamp can reproduce them exactly apart from the packaged
	// attribute.
	Descriptor struct {
		Metadata

		raw []byte
		// rootStart and rootEnd delimit the root start tag in raw, including
		// the angle brackets.
		rootStart int
		rootEnd   int
	}

	// attrSpan locates one attribute inside a start tag.
	attrSpan struct {
		name       string
		start, end int // whole `name="value"` text
	}
)

// PackageBase returns name-version-release.
func (m Metadata) PackageBase() string {
	return m.Name + "-" + m.Version + "-" + m.Release
}

// missing lists the identity fields that are empty.
func (m Metadata) missing() []string {
	var fields []string
	if m.SchemaVersion == "" {
		fields = append(fields, "version attribute")
	}
	if m.Name == "" {
		fields = append(fields, "name")
	}
	if m.Version == "" {
		fields = append(fields, "version")
	}
	if m.Release == "" {
		fields = append(fields, "release")
	}
	return fields
}

// LoadDescriptor reads and parses APP-META.xml from the root of sourceDir.
func LoadDescriptor(sourceDir string) (*Descriptor, error) {
	path := filepath.Join(sourceDir, MetaFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MetadataMissingError{Path: path, Err: err}
	}

	d, err := parseDescriptor(data, path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ParseDescriptor parses APP-META.xml content.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	return parseDescriptor(data, MetaFileName)
}

func parseDescriptor(data []byte, path string) (*Descriptor, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	d := &Descriptor{raw: data, rootStart: -1}
	depth := 0
	var field string // tracked child currently open at depth 2
	var text strings.Builder

	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MetadataMalformedError{Path: path, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if d.rootStart >= 0 {
					return nil, &MetadataMalformedError{Path: path, Err: errors.New("multiple root elements")}
				}
				d.rootStart = offset
				d.rootEnd = int(dec.InputOffset())
				for _, a := range t.Attr {
					if a.Name.Space == "" && a.Name.Local == "version" {
						d.SchemaVersion = a.Value
					}
				}
			case 2:
				if isIdentityField(t.Name.Local) {
					field = t.Name.Local
					text.Reset()
				}
			}
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, &MetadataMalformedError{Path: path, Err: errors.New("text outside the root element")}
			}
			if depth == 2 && field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && field != "" {
				d.setField(field, text.String())
				field = ""
			}
			depth--
		}
	}

	if d.rootStart < 0 {
		return nil, &MetadataMalformedError{Path: path, Err: errors.New("no root element")}
	}
	// Offsets past an encoding declaration count decoded bytes. They match raw
	// only while everything through the root start tag is ASCII.
	if d.rootEnd > len(data) || data[d.rootStart] != '<' || data[d.rootEnd-1] != '>' {
		return nil, &MetadataMalformedError{Path: path, Err: errors.New("root start tag not located in the original bytes")}
	}
	if missing := d.missing(); len(missing) > 0 {
		return nil, &MetadataIncompleteError{Path: path, Missing: missing}
	}
	return d, nil
}

func isIdentityField(name string) bool {
	return name == "name" || name == "version" || name == "release"
}

// setField records a direct child's text as written, surrounding whitespace
// included. A repeated element overrides the earlier one.
func (d *Descriptor) setField(name, value string) {
	switch name {
	case "name":
		d.Name = value
	case "version":
		d.Version = value
	case "release":
		d.Release = value
	}
}

// Bytes returns a copy of the descriptor as it was read.
func (d *Descriptor) Bytes() []byte {
	return bytes.Clone(d.raw)
}

// PackagedValue formats t the way Stamp writes it: UTC, whole seconds.
func PackagedValue(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(packagedLayout)
}

// Stamp returns the descriptor with the root element's packaged attribute set
// to t. Every other byte of the original document is kept. An existing
// packaged attribute has its value replaced in place; otherwise the attribute
// is appended to the root start tag.
func (d *Descriptor) Stamp(t time.Time) ([]byte, error) {
	if d.rootStart < 0 || d.rootEnd > len(d.raw) || d.rootStart >= d.rootEnd {
		return nil, &SerializationError{Document: MetaFileName, Err: errors.New("root element not located")}
	}

	tag := d.raw[d.rootStart:d.rootEnd]
	attr := fmt.Sprintf(`%s="%s"`, PackagedAttr, PackagedValue(t))

	spans, err := scanAttributes(tag)
	if err != nil {
		return nil, &SerializationError{Document: MetaFileName, Err: err}
	}

	var out bytes.Buffer
	out.Grow(len(d.raw) + len(attr) + 1)
	out.Write(d.raw[:d.rootStart])

	replaced := false
	for _, s := range spans {
		if s.name == PackagedAttr {
			out.Write(tag[:s.start])
			out.WriteString(attr)
			out.Write(tag[s.end:])
			replaced = true
			break
		}
	}
	if !replaced {
		insert := len(tag) - 1
		if bytes.HasSuffix(tag, []byte("/>")) {
			insert = len(tag) - 2
		}
		out.Write(tag[:insert])
		out.WriteByte(' ')
		out.WriteString(attr)
		out.Write(tag[insert:])
	}

	out.Write(d.raw[d.rootEnd:])
	return out.Bytes(), nil
}

// scanAttributes lexes the attributes of a well-formed start tag such as
// `<application xmlns="..." version='1.2'>`.
func scanAttributes(tag []byte) ([]attrSpan, error) {
	i := 1 // skip '<'
	for i < len(tag) && !isXMLSpace(tag[i]) && tag[i] != '>' && tag[i] != '/' {
		i++
	}

	var spans []attrSpan
	for {
		for i < len(tag) && isXMLSpace(tag[i]) {
			i++
		}
		if i >= len(tag) {
			return nil, errors.New("unterminated start tag")
		}
		if tag[i] == '>' || tag[i] == '/' {
			return spans, nil
		}

		start := i
		for i < len(tag) && tag[i] != '=' && !isXMLSpace(tag[i]) {
			i++
		}
		name := string(tag[start:i])
		for i < len(tag) && isXMLSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] != '=' {
			return nil, fmt.Errorf("attribute %q has no value", name)
		}
		i++
		for i < len(tag) && isXMLSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || (tag[i] != '"' && tag[i] != '\'') {
			return nil, fmt.Errorf("attribute %q value is not quoted", name)
		}
		quote := tag[i]
		i++
		for i < len(tag) && tag[i] != quote {
			i++
		}
		if i >= len(tag) {
			return nil, fmt.Errorf("attribute %q value is not terminated", name)
		}
		i++
		spans = append(spans, attrSpan{name: name, start: start, end: i})
	}
}

func isXMLSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
