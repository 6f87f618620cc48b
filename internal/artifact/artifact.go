// Package artifact re-exports the artifact storage abstractions and selects
// a backend from the environment. Publication files (preprints, datasets,
// figures) are stored here under keys derived from the publication id.
package artifact

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"labcore/internal/artifact/core"
	"labcore/internal/artifact/fs"
	"labcore/internal/artifact/memory"
	"labcore/internal/artifact/s3"
)

type (
	// Driver identifies an artifact backend.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the backend interface.
	Store = core.Store
	// S3Config parameterizes the bucket backend.
	S3Config = s3.Config
)

const (
	// DriverFilesystem is the local filesystem backend.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible backend.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test backend.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation a backend does not provide.
var ErrUnsupported = core.ErrUnsupported

// NewFilesystem constructs a filesystem-backed store rooted at path.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory constructs an in-memory store for tests.
func NewMemory() Store { return memory.New() }

// NewS3 constructs a bucket-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3.New(ctx, cfg) }

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }

// Open selects a backend using environment variables.
//
//	LABCORE_ARTIFACT_DRIVER: fs|s3|memory (default fs)
//	LABCORE_ARTIFACT_FS_ROOT: directory root when driver=fs
//	(S3 variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("LABCORE_ARTIFACT_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(os.Getenv("LABCORE_ARTIFACT_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown artifact driver %s", driver)
	}
}

// PublicationPrefix returns the key prefix holding a publication's artifacts.
func PublicationPrefix(publicationID int64) string {
	return "publications/" + strconv.FormatInt(publicationID, 10) + "/"
}

// PublicationKey returns the storage key for one publication file.
func PublicationKey(publicationID int64, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return PublicationPrefix(publicationID) + filename, nil
}

// ValidateFilename rejects empty names and names carrying path structure.
func ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("artifact filename required")
	}
	if strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return fmt.Errorf("artifact filename %q must not contain path separators", filename)
	}
	return nil
}
