package ports

// Hasher computes content digests of source files.
type Hasher interface {
	// ComputeFileHash returns the digest of the file at path.
	ComputeFileHash(path string) (uint64, error)
}
