// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	MetadataMissingId Id = iota + 1
	MetadataMalformedId
	MetadataIncompleteId
	FileUnreadableId
	ArchiveWriteFailedId
	ArchiveInvalidId
	VerificationFailedId
	ConfigLoadFailedId
)

const docBase = "https://github.com/apspack/apspack/blob/main/docs/"

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry with Markdown guidance for one failure class.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink // never empty
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the guidance and its documentation links with the glamour
// style at stylePath ("dark", "light", "notty", "auto" or a JSON file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	metadataMissingIssue = &Issue{
		id: MetadataMissingId,
		mdMsg: `
# No APP-META.xml found

Every package source tree needs an **APP-META.xml** descriptor at its root.
Nothing was written.

## Things you can try
- Check that ` + "`-i/--input`" + ` points at the package root, not a subdirectory:
~~~
$ apspack build -i ./my-app
~~~
- Make sure the file name is exactly ` + "`APP-META.xml`" + ` (the lookup is case sensitive).`,
		docLinks: []HttpLink{docBase + "descriptor.md"},
	}

	metadataMalformedIssue = &Issue{
		id: MetadataMalformedId,
		mdMsg: `
# APP-META.xml is not well-formed XML

The descriptor could not be parsed. Nothing was written.

## Things you can try
- Look for unclosed tags or unescaped ` + "`&`" + ` and ` + "`<`" + ` characters.
- Check that the document has exactly one root element.`,
		docLinks: []HttpLink{docBase + "descriptor.md"},
	}

	metadataIncompleteIssue = &Issue{
		id: MetadataIncompleteId,
		mdMsg: `
# APP-META.xml is missing required fields

The package name is built from ` + "`name`, `version` and `release`" + `, and the
root ` + "`version`" + ` attribute selects the schema. All four must be present
and non-empty.

## Example
~~~xml
<application xmlns="http://apstandard.com/ns/1" version="1.2">
  <name>WordPress</name>
  <version>5.1.0</version>
  <release>1</release>
</application>
~~~`,
		docLinks: []HttpLink{docBase + "descriptor.md"},
	}

	fileUnreadableIssue = &Issue{
		id: FileUnreadableId,
		mdMsg: `
# A file in the source tree could not be read

Packaging stops at the first unreadable entry so that the archive never
silently misses content. Nothing was written.

## Things you can try
- Check file permissions under the source directory.
- Remove sockets, devices or named pipes from the tree.
- Avoid editing files while a build is running; a file that changes between
  hashing and archiving fails the build.`,
		docLinks: []HttpLink{docBase + "troubleshooting.md"},
	}

	archiveWriteFailedIssue = &Issue{
		id: ArchiveWriteFailedId,
		mdMsg: `
# The package archive could not be written

The archive is written to a temporary file first, so any previous package
with the same name is still intact.

## Things you can try
- Check that the output directory is writable and the disk is not full:
~~~
$ apspack build -o ./dist
~~~`,
		docLinks: []HttpLink{docBase + "troubleshooting.md"},
	}

	archiveInvalidIssue = &Issue{
		id: ArchiveInvalidId,
		mdMsg: `
# Not a readable package archive

The file is not a ZIP archive, or it has no readable **APP-META.xml** or
**APP-LIST.xml** member.

## Things you can try
- Rebuild the package with ` + "`apspack build`" + `.
- Check that the download or copy of the archive completed.`,
		docLinks: []HttpLink{docBase + "verify.md"},
	}

	verificationFailedIssue = &Issue{
		id: VerificationFailedId,
		mdMsg: `
# Package contents do not match APP-LIST.xml

At least one member has a different SHA-256 or size than recorded, is listed
but absent, or is present but not listed.

## Things you can try
- Rebuild the package from a clean source tree.
- Compare the reported members with the source files.`,
		docLinks: []HttpLink{docBase + "verify.md"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

## Things you can try
- Print the file that would be used:
~~~
$ apspack config path
~~~
- Regenerate a default configuration:
~~~
$ apspack config init --force
~~~`,
		docLinks: []HttpLink{docBase + "configuration.md"},
	}

	issues = map[Id]*Issue{
		metadataMissingIssue.Id():    metadataMissingIssue,
		metadataMalformedIssue.Id():  metadataMalformedIssue,
		metadataIncompleteIssue.Id(): metadataIncompleteIssue,
		fileUnreadableIssue.Id():     fileUnreadableIssue,
		archiveWriteFailedIssue.Id(): archiveWriteFailedIssue,
		archiveInvalidIssue.Id():     archiveInvalidIssue,
		verificationFailedIssue.Id(): verificationFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := slices.Collect(maps.Values(issues))
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
