// Package version holds build metadata set at link time.
package version

// Version is the release of the seqstat binary.
var Version = "dev"

// BinaryGitHash is the Git hash of the seqstat binary file which is executing.
var BinaryGitHash = "<unknown>"

// String returns the version with the short commit hash when known.
func String() string {
	if BinaryGitHash == "" || BinaryGitHash == "<unknown>" {
		return Version
	}

	hash := BinaryGitHash
	if len(hash) > 7 {
		hash = hash[:7]
	}

	return Version + " (" + hash + ")"
}
