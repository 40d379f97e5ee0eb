package registry

// GroupCollection is the group run by the collect command.
const GroupCollection = "collection"

// Unit kinds accepted in a catalog.
const (
	KindCopy    = "copy"
	KindCommand = "command"
)

// UnitSpec is a single [[unit]] table in a catalog file.
type UnitSpec struct {
	Name        string `toml:"name"`
	Kind        string `toml:"kind"`
	Description string `toml:"description,omitempty"`
	Group       string `toml:"group,omitempty"` // empty = collection

	// copy
	SourceDir   string   `toml:"source_dir,omitempty"`
	Prefixes    []string `toml:"prefixes,omitempty"`
	MaxFileSize string   `toml:"max_file_size,omitempty"` // e.g. "512M"

	// command; exactly one of Command and Shell
	Command []string `toml:"command,omitempty"`
	Shell   string   `toml:"shell,omitempty"`
	Timeout string   `toml:"timeout,omitempty"` // Go duration, empty = none

	Report *bool `toml:"report,omitempty"` // nil = true
}

// Catalog is a parsed catalog file. Source records where it came from.
type Catalog struct {
	Source string     `toml:"-"`
	Units  []UnitSpec `toml:"unit"`
}
