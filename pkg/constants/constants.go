// Package constants provides shared constants used throughout the fleetsync codebase.
// This includes timeouts for external commands, file permissions, and the
// fixed filenames every handler reads and writes.
package constants

import "time"

// Timeout constants bound every external call. A timeout fails one step only.
const (
	// GitProbeTimeout is the timeout for fast metadata checks like git rev-parse
	GitProbeTimeout = 5 * time.Second

	// GitAddTimeout is the timeout for git add
	GitAddTimeout = 30 * time.Second

	// GitCommitTimeout is the timeout for git commit
	GitCommitTimeout = 30 * time.Second

	// GitPushTimeout is the timeout for git push
	GitPushTimeout = 60 * time.Second

	// RevisionLookupTimeout is the timeout for git ls-remote against an upstream repository
	RevisionLookupTimeout = 30 * time.Second

	// PackageSyncTimeout is the timeout for uv sync after a manifest update
	PackageSyncTimeout = 120 * time.Second

	// PackageIndexTimeout is the timeout for a single PyPI metadata request
	PackageIndexTimeout = 10 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Filename constants
const (
	// DefaultConfigFile is the fleet configuration read when no path is given
	DefaultConfigFile = "config.yaml"

	// DefaultTemplateDir is used when the fleet configuration omits template_dir
	DefaultTemplateDir = "./templates"

	// DefaultPythonVersion is used when defaults.python_version is omitted
	DefaultPythonVersion = "3.12"

	// DefaultLicenseType names the license template used when a project sets none
	DefaultLicenseType = "Apache-2.0"

	// BackupSuffix is appended to a file name to form its backup sibling
	BackupSuffix = ".bak"

	// PyprojectFile is the dependency manifest of a project
	PyprojectFile = "pyproject.toml"

	// PyprojectTemplate is the template holding the shared manifest sections
	PyprojectTemplate = "sections.toml"

	// GitlabCIFile is the CI document edited in place
	GitlabCIFile = ".gitlab-ci.yml"
)

// Output limits
const (
	// MaxStderrLines is how many stderr lines of a failed command are surfaced
	MaxStderrLines = 5

	// ShortRevisionLength is how many characters of a revision appear in messages
	ShortRevisionLength = 8

	// RevisionLength is the length of a full git SHA-1 revision
	RevisionLength = 40
)

// External resources
const (
	// PyPIBaseURL is the JSON API root of the Python package index
	PyPIBaseURL = "https://pypi.org/pypi"
)
