package mailbox

import (
	"fmt"
	"strings"
)

// FolderKind is one of the well known mailbox folders.
type FolderKind string

const (
	Inbox   FolderKind = "inbox"
	Sent    FolderKind = "sent"
	Drafts  FolderKind = "drafts"
	Deleted FolderKind = "deleted"
	Junk    FolderKind = "junk"
	Outbox  FolderKind = "outbox"
)

// FolderKinds lists the accepted kinds in display order.
var FolderKinds = []FolderKind{Inbox, Sent, Drafts, Deleted, Junk, Outbox}

// ParseFolderKind maps a case-insensitive name onto a FolderKind. An empty
// value selects the inbox.
func ParseFolderKind(value string) (FolderKind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Inbox, nil
	}
	for _, kind := range FolderKinds {
		if string(kind) == v {
			return kind, nil
		}
	}
	return "", fmt.Errorf("folder %q not recognized, options: %s", value, kindNames())
}

func kindNames() string {
	names := make([]string, 0, len(FolderKinds))
	for _, kind := range FolderKinds {
		names = append(names, string(kind))
	}
	return strings.Join(names, ", ")
}
