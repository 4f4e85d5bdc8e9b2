// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"slices"
	"strings"
)

type (
	// VerifyResult reports how an archive's members compare with its APP-LIST.xml.
	VerifyResult struct {
		ArchivePath string   `json:"archive" toml:"archive" yaml:"archive"`
		Metadata    Metadata `json:"metadata" toml:"metadata" yaml:"metadata"`
		// HasFileList is false for packages whose schema version skips APP-LIST.xml;
		// only the descriptor is checked then.
		HasFileList  bool       `json:"has_file_list" toml:"has_file_list" yaml:"has_file_list"`
		FilesChecked int        `json:"files_checked" toml:"files_checked" yaml:"files_checked"`
		Mismatches   []Mismatch `json:"mismatches,omitempty" toml:"mismatches,omitempty" yaml:"mismatches,omitempty"`
		Missing      []string   `json:"missing,omitempty" toml:"missing,omitempty" yaml:"missing,omitempty"`
		Undeclared   []string   `json:"undeclared,omitempty" toml:"undeclared,omitempty" yaml:"undeclared,omitempty"`
	}

	// Mismatch is a member whose content differs from its APP-LIST.xml record.
	Mismatch struct {
		Name         string `json:"name" toml:"name" yaml:"name"`
		ExpectedHash string `json:"expected_sha256" toml:"expected_sha256" yaml:"expected_sha256"`
		ActualHash   string `json:"actual_sha256" toml:"actual_sha256" yaml:"actual_sha256"`
		ExpectedSize int64  `json:"expected_size" toml:"expected_size" yaml:"expected_size"`
		ActualSize   int64  `json:"actual_size" toml:"actual_size" yaml:"actual_size"`
	}
)

// OK reports whether every listed member is present and intact and no file
// member is missing from the list.
func (r *VerifyResult) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Missing) == 0 && len(r.Undeclared) == 0
}

// Verify opens a package archive and recomputes the SHA-256 and size of every
// member listed in APP-LIST.xml. Structural problems (unreadable ZIP, missing
// or malformed descriptor, malformed file list) are returned as
// ArchiveInvalidError; content differences are reported in the result.
func Verify(archivePath string) (result *VerifyResult, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &ArchiveInvalidError{Path: archivePath, Reason: "open", Err: err}
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = &ArchiveInvalidError{Path: archivePath, Reason: "close", Err: closeErr}
		}
	}()

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[f.Name] = f
	}

	metaFile, ok := members[MetaFileName]
	if !ok {
		return nil, &ArchiveInvalidError{Path: archivePath, Reason: MetaFileName + " not found"}
	}
	metaData, err := readMember(metaFile)
	if err != nil {
		return nil, &ArchiveInvalidError{Path: archivePath, Reason: "read " + MetaFileName, Err: err}
	}
	desc, err := ParseDescriptor(metaData)
	if err != nil {
		return nil, &ArchiveInvalidError{Path: archivePath, Reason: "parse " + MetaFileName, Err: err}
	}

	result = &VerifyResult{ArchivePath: archivePath, Metadata: desc.Metadata}

	listFile, ok := members[ListFileName]
	if !ok {
		return result, nil
	}
	result.HasFileList = true

	listData, err := readMember(listFile)
	if err != nil {
		return nil, &ArchiveInvalidError{Path: archivePath, Reason: "read " + ListFileName, Err: err}
	}
	listed, err := parseFileList(listData)
	if err != nil {
		return nil, &ArchiveInvalidError{Path: archivePath, Reason: "parse " + ListFileName, Err: err}
	}

	declared := make(map[string]struct{}, len(listed))
	for _, rec := range listed {
		declared[rec.Name] = struct{}{}
		f, ok := members[rec.Name]
		if !ok {
			result.Missing = append(result.Missing, rec.Name)
			continue
		}
		digest, size, hashErr := hashMember(f)
		if hashErr != nil {
			return nil, &ArchiveInvalidError{Path: archivePath, Reason: "read " + rec.Name, Err: hashErr}
		}
		result.FilesChecked++
		if digest != rec.SHA256 || size != rec.Size {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Name:         rec.Name,
				ExpectedHash: rec.SHA256,
				ActualHash:   digest,
				ExpectedSize: rec.Size,
				ActualSize:   size,
			})
		}
	}

	for _, f := range zr.File {
		if f.Name == ListFileName || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, ok := declared[f.Name]; !ok {
			result.Undeclared = append(result.Undeclared, f.Name)
		}
	}
	slices.Sort(result.Undeclared)

	return result, nil
}

func readMember(f *zip.File) (data []byte, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return io.ReadAll(rc)
}

func hashMember(f *zip.File) (digest string, size int64, err error) {
	rc, err := f.Open()
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := sha256.New()
	size, err = io.Copy(h, rc)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
