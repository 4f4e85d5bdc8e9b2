// SPDX-License-Identifier: MPL-2.0

// Package apspkg builds APS application packages.
//
// A package is assembled from a source directory whose root holds an
// APP-META.xml descriptor. The build runs four stages in sequence:
//
//   - LoadDescriptor parses APP-META.xml and extracts the package identity
//     (schema version, name, version, release).
//   - Enumerate walks the source tree, skipping the ExclusionSet, and hashes
//     every file with SHA-256.
//   - Descriptor.Stamp and GenerateFileList produce the APP-META.xml and
//     APP-LIST.xml members.
//   - Build writes everything into <name>-<version>-<release>.app.zip through
//     a temporary file that is renamed into place only after the archive has
//     been finalized.
//
// APP-LIST.xml is only written when RequiresFileList reports true for the
// descriptor's schema version. The comparison is a raw string comparison, so
// "1.10" orders before "1.2".
package apspkg
