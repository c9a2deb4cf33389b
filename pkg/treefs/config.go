package treefs

// Config is the external configuration surface of SPEC_FULL.md §8. It is
// always supplied already-populated by the caller: this package loads no
// config file and reads no environment variables itself (config loading is
// an explicitly external concern, same as user account management).
type Config struct {
	// RootFileID is the id of the pre-existing root directory every
	// absolute path resolves from.
	RootFileID FileID

	// ChunkSize bounds each chunk a single content write reads and writes,
	// in bytes.
	ChunkSize int64

	// MaxFileSize bounds the total size a regular file's content may grow
	// to across all chunks of a single write.
	MaxFileSize int64

	// FilesBaseURL is an opaque prefix blob drivers may use to construct
	// externally-resolvable content URLs; the tree engine never
	// dereferences it itself.
	FilesBaseURL string

	BlobDriver BlobDriverConfig
}

// BlobDriverConfig selects and configures the Blob Driver backend.
type BlobDriverConfig struct {
	Kind string // "file_system" or "s3"

	// FileSystemDir is the root directory for the file_system driver.
	FileSystemDir string

	// S3Bucket and S3Prefix configure the s3 driver.
	S3Bucket string
	S3Prefix string
}
